package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/auth"
	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
	"github.com/urbanbyte/chamados/internal/util"
)

type stubUserRepo struct {
	users    map[uuid.UUID]repo.Usuario
	emails   map[string]bool
	convites map[string]repo.Convite
	aceitos  []uuid.UUID
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:    make(map[uuid.UUID]repo.Usuario),
		emails:   make(map[string]bool),
		convites: make(map[string]repo.Convite),
	}
}

func (s *stubUserRepo) GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error) {
	user, ok := s.users[id]
	if !ok {
		return repo.Usuario{}, repo.ErrNotFound
	}
	return user, nil
}

func (s *stubUserRepo) ListUsuariosByTenant(ctx context.Context, tenantID uuid.UUID) ([]repo.Usuario, error) {
	var out []repo.Usuario
	for _, user := range s.users {
		if user.TenantID == tenantID {
			out = append(out, user)
		}
	}
	return out, nil
}

func (s *stubUserRepo) CreateUsuario(ctx context.Context, tenantID uuid.UUID, nome, email string, role authz.Role, ativo bool, senhaHash *string) (repo.Usuario, error) {
	if s.emails[email] {
		return repo.Usuario{}, repo.ErrDuplicated
	}
	user := repo.Usuario{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Nome:      nome,
		Email:     email,
		SenhaHash: senhaHash,
		Role:      role,
		Ativo:     ativo,
	}
	s.users[user.ID] = user
	s.emails[email] = true
	return user, nil
}

func (s *stubUserRepo) UpdateUsuarioAccess(ctx context.Context, id uuid.UUID, role *authz.Role, ativo *bool) (repo.Usuario, error) {
	user, ok := s.users[id]
	if !ok {
		return repo.Usuario{}, repo.ErrNotFound
	}
	if role != nil {
		user.Role = *role
	}
	if ativo != nil {
		user.Ativo = *ativo
	}
	s.users[id] = user
	return user, nil
}

func (s *stubUserRepo) ActivateUsuario(ctx context.Context, id uuid.UUID, senhaHash string) error {
	user, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	user.SenhaHash = &senhaHash
	user.Ativo = true
	s.users[id] = user
	return nil
}

func (s *stubUserRepo) CreateConvite(ctx context.Context, tenantID, usuarioID uuid.UUID, tokenHash string, expiracao time.Time) (repo.Convite, error) {
	convite := repo.Convite{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UsuarioID: usuarioID,
		TokenHash: tokenHash,
		Expiracao: expiracao,
	}
	s.convites[tokenHash] = convite
	return convite, nil
}

func (s *stubUserRepo) GetConviteByTokenHash(ctx context.Context, tokenHash string) (repo.Convite, error) {
	convite, ok := s.convites[tokenHash]
	if !ok {
		return repo.Convite{}, repo.ErrNotFound
	}
	return convite, nil
}

func (s *stubUserRepo) MarkConviteAceito(ctx context.Context, id uuid.UUID) error {
	s.aceitos = append(s.aceitos, id)
	for hash, convite := range s.convites {
		if convite.ID == id {
			now := time.Now()
			convite.AceitoEm = &now
			s.convites[hash] = convite
		}
	}
	return nil
}

func gestorPrincipal(tenantID uuid.UUID) authz.Principal {
	return authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleGestor}
}

func TestInviteCreatesInactiveProfile(t *testing.T) {
	repoStub := newStubUserRepo()
	svc := NewUserService(repoStub, time.Hour)
	tenantID := uuid.New()

	result, err := svc.Invite(context.Background(), gestorPrincipal(tenantID), "Nova Técnica", "tecnica@example.com", "tecnico")
	if err != nil {
		t.Fatalf("invite falhou: %v", err)
	}
	if result.Usuario.Ativo {
		t.Fatal("perfil convidado deveria nascer inativo")
	}
	if result.Usuario.SenhaHash != nil {
		t.Fatal("convite não deve criar credencial")
	}
	if result.Usuario.Role != authz.RoleTecnico {
		t.Fatalf("papel esperado TECNICO, obtido %s", result.Usuario.Role)
	}
	if result.Token == "" {
		t.Fatal("token do convite ausente")
	}
	if _, ok := repoStub.convites[auth.HashRefreshToken(result.Token)]; !ok {
		t.Fatal("convite não foi persistido pelo hash do token")
	}
}

func TestInviteDeniedForTecnico(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), time.Hour)
	p := authz.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleTecnico}

	_, err := svc.Invite(context.Background(), p, "Alguém", "alguem@example.com", "usuario")
	if !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("esperado ErrForbidden, obtido %v", err)
	}
}

func TestInviteRejectsInvalidRole(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), time.Hour)

	_, err := svc.Invite(context.Background(), gestorPrincipal(uuid.New()), "Alguém", "alguem@example.com", "auditor")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("esperado ErrValidation, obtido %v", err)
	}
}

func TestInviteSuperAdminGrantRestricted(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), time.Hour)

	_, err := svc.Invite(context.Background(), gestorPrincipal(uuid.New()), "Alguém", "alguem@example.com", "super_admin")
	if !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("gestor não concede SUPER_ADMIN, obtido %v", err)
	}

	super := authz.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleSuperAdmin}
	if _, err := svc.Invite(context.Background(), super, "Alguém", "alguem@example.com", "super_admin"); err != nil {
		t.Fatalf("super admin deveria conceder o papel: %v", err)
	}
}

func TestInviteDuplicateEmail(t *testing.T) {
	repoStub := newStubUserRepo()
	svc := NewUserService(repoStub, time.Hour)
	p := gestorPrincipal(uuid.New())

	if _, err := svc.Invite(context.Background(), p, "Primeira", "dup@example.com", "usuario"); err != nil {
		t.Fatalf("primeiro invite falhou: %v", err)
	}
	_, err := svc.Invite(context.Background(), p, "Segunda", "dup@example.com", "usuario")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("email repetido deveria dar ErrValidation, obtido %v", err)
	}
}

func TestInviteRejectsMalformedEmail(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), time.Hour)

	_, err := svc.Invite(context.Background(), gestorPrincipal(uuid.New()), "Alguém", "sem-arroba", "usuario")
	if !errors.Is(err, util.ErrInvalid) {
		t.Fatalf("esperado util.ErrInvalid, obtido %v", err)
	}
}

func TestAcceptInviteActivatesProfile(t *testing.T) {
	repoStub := newStubUserRepo()
	svc := NewUserService(repoStub, time.Hour)
	p := gestorPrincipal(uuid.New())

	result, err := svc.Invite(context.Background(), p, "Nova Técnica", "tecnica@example.com", "tecnico")
	if err != nil {
		t.Fatalf("invite falhou: %v", err)
	}

	if err := svc.AcceptInvite(context.Background(), result.Token, "SenhaForte123!"); err != nil {
		t.Fatalf("accept falhou: %v", err)
	}

	user := repoStub.users[result.Usuario.ID]
	if !user.Ativo {
		t.Fatal("perfil deveria estar ativo após aceitar")
	}
	if user.SenhaHash == nil {
		t.Fatal("senha não foi gravada")
	}
	if len(repoStub.aceitos) != 1 {
		t.Fatalf("convite não marcado como aceito: %d", len(repoStub.aceitos))
	}

	// Convite não é reutilizável.
	if err := svc.AcceptInvite(context.Background(), result.Token, "OutraSenha123!"); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("reuso de convite deveria falhar, obtido %v", err)
	}
}

func TestAcceptInviteExpired(t *testing.T) {
	repoStub := newStubUserRepo()
	svc := NewUserService(repoStub, time.Millisecond)
	p := gestorPrincipal(uuid.New())

	result, err := svc.Invite(context.Background(), p, "Atrasada", "atrasada@example.com", "usuario")
	if err != nil {
		t.Fatalf("invite falhou: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := svc.AcceptInvite(context.Background(), result.Token, "SenhaForte123!"); !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("convite expirado deveria falhar, obtido %v", err)
	}
}

func TestAcceptInviteUnknownToken(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), time.Hour)

	err := svc.AcceptInvite(context.Background(), "token-inexistente", "SenhaForte123!")
	if !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("esperado ErrInviteInvalid, obtido %v", err)
	}
}

func TestAcceptInviteWeakPassword(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), time.Hour)

	err := svc.AcceptInvite(context.Background(), "qualquer", "123")
	if !errors.Is(err, util.ErrInvalid) {
		t.Fatalf("senha fraca deveria dar util.ErrInvalid, obtido %v", err)
	}
}

func TestUpdateAccessDeactivates(t *testing.T) {
	repoStub := newStubUserRepo()
	svc := NewUserService(repoStub, time.Hour)
	tenantID := uuid.New()
	p := gestorPrincipal(tenantID)

	target, err := repoStub.CreateUsuario(context.Background(), tenantID, "Alvo", "alvo@example.com", authz.RoleTecnico, true, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	inactive := false
	updated, err := svc.UpdateAccess(context.Background(), p, target.ID, nil, &inactive)
	if err != nil {
		t.Fatalf("update falhou: %v", err)
	}
	if updated.Ativo {
		t.Fatal("usuário deveria ter sido desativado")
	}
	if updated.Role != authz.RoleTecnico {
		t.Fatalf("papel não deveria mudar, obtido %s", updated.Role)
	}
}

func TestUpdateAccessCrossTenantDenied(t *testing.T) {
	repoStub := newStubUserRepo()
	svc := NewUserService(repoStub, time.Hour)

	target, err := repoStub.CreateUsuario(context.Background(), uuid.New(), "Alvo", "alvo@example.com", authz.RoleTecnico, true, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	role := "gestor"
	_, err = svc.UpdateAccess(context.Background(), gestorPrincipal(uuid.New()), target.ID, &role, nil)
	if !errors.Is(err, authz.ErrCrossTenant) {
		t.Fatalf("esperado ErrCrossTenant, obtido %v", err)
	}

	// Mesmo SUPER_ADMIN só altera dentro do próprio escopo.
	super := authz.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleSuperAdmin}
	if _, err := svc.UpdateAccess(context.Background(), super, target.ID, &role, nil); !errors.Is(err, authz.ErrCrossTenant) {
		t.Fatalf("super admin fora do tenant deveria falhar, obtido %v", err)
	}
}
