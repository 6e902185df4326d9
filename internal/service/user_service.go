package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/auth"
	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
	"github.com/urbanbyte/chamados/internal/util"
)

var (
	// ErrInviteInvalid indica convite desconhecido, expirado ou já aceito.
	ErrInviteInvalid = errors.New("convite inválido")
	// ErrValidation marca entrada inválida sinalizada pelos serviços.
	ErrValidation = errors.New("validação")
)

type userRepository interface {
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	ListUsuariosByTenant(ctx context.Context, tenantID uuid.UUID) ([]repo.Usuario, error)
	CreateUsuario(ctx context.Context, tenantID uuid.UUID, nome, email string, role authz.Role, ativo bool, senhaHash *string) (repo.Usuario, error)
	UpdateUsuarioAccess(ctx context.Context, id uuid.UUID, role *authz.Role, ativo *bool) (repo.Usuario, error)
	ActivateUsuario(ctx context.Context, id uuid.UUID, senhaHash string) error
	CreateConvite(ctx context.Context, tenantID, usuarioID uuid.UUID, tokenHash string, expiracao time.Time) (repo.Convite, error)
	GetConviteByTokenHash(ctx context.Context, tokenHash string) (repo.Convite, error)
	MarkConviteAceito(ctx context.Context, id uuid.UUID) error
}

// UserService centraliza a administração de perfis do tenant.
type UserService struct {
	repo      userRepository
	inviteTTL time.Duration
}

// NewUserService cria nova instância do serviço.
func NewUserService(r userRepository, inviteTTL time.Duration) *UserService {
	if inviteTTL <= 0 {
		inviteTTL = 7 * 24 * time.Hour
	}
	return &UserService{repo: r, inviteTTL: inviteTTL}
}

// InviteResult devolve o perfil criado e o token bruto do convite.
type InviteResult struct {
	Usuario repo.Usuario
	Token   string
	Expira  time.Time
}

// List devolve os usuários do tenant do principal.
func (s *UserService) List(ctx context.Context, p authz.Principal) ([]repo.Usuario, error) {
	if err := authz.Require(p, authz.ActionManageUsers); err != nil {
		return nil, err
	}
	return s.repo.ListUsuariosByTenant(ctx, p.TenantID)
}

// Invite cria o perfil (inativo) e o convite de ativação. A credencial em si
// só passa a existir quando o convite é aceito.
func (s *UserService) Invite(ctx context.Context, p authz.Principal, nome, email, role string) (*InviteResult, error) {
	if err := authz.Require(p, authz.ActionManageUsers); err != nil {
		return nil, err
	}

	if err := util.RequireString(nome, "nome"); err != nil {
		return nil, err
	}
	if err := util.ValidateEmail(email); err != nil {
		return nil, err
	}

	normalizedRole := authz.NormalizeRole(role)
	if !authz.IsValidRole(normalizedRole) {
		return nil, fmt.Errorf("%w: papel inválido", ErrValidation)
	}
	if normalizedRole == authz.RoleSuperAdmin && !p.IsSuperAdmin() {
		return nil, authz.ErrForbidden
	}

	user, err := s.repo.CreateUsuario(ctx, p.TenantID, nome, email, normalizedRole, false, nil)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicated) {
			return nil, fmt.Errorf("%w: email já cadastrado", ErrValidation)
		}
		return nil, err
	}

	rawToken, tokenHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiry := time.Now().Add(s.inviteTTL)
	if _, err := s.repo.CreateConvite(ctx, p.TenantID, user.ID, tokenHash, expiry); err != nil {
		return nil, err
	}

	return &InviteResult{Usuario: user, Token: rawToken, Expira: expiry}, nil
}

// AcceptInvite valida o token, grava a senha e ativa o perfil.
func (s *UserService) AcceptInvite(ctx context.Context, rawToken, senha string) error {
	if err := util.ValidatePassword(senha); err != nil {
		return err
	}

	convite, err := s.repo.GetConviteByTokenHash(ctx, auth.HashRefreshToken(rawToken))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInviteInvalid
		}
		return err
	}
	if convite.AceitoEm != nil || time.Now().After(convite.Expiracao) {
		return ErrInviteInvalid
	}

	hash, err := auth.Hash(senha)
	if err != nil {
		return err
	}

	if err := s.repo.ActivateUsuario(ctx, convite.UsuarioID, hash); err != nil {
		return err
	}
	return s.repo.MarkConviteAceito(ctx, convite.ID)
}

// UpdateAccess altera papel e/ou flag de ativação de um usuário do tenant.
// active=false revoga toda autorização sem apagar o registro.
func (s *UserService) UpdateAccess(ctx context.Context, p authz.Principal, id uuid.UUID, role *string, ativo *bool) (repo.Usuario, error) {
	if err := authz.Require(p, authz.ActionManageUsers); err != nil {
		return repo.Usuario{}, err
	}

	target, err := s.repo.GetUsuarioByID(ctx, id)
	if err != nil {
		return repo.Usuario{}, err
	}
	// Mutação exige tenant exato mesmo para SUPER_ADMIN.
	if err := authz.CheckTenant(p, target.TenantID); err != nil {
		return repo.Usuario{}, err
	}

	var roleVal *authz.Role
	if role != nil {
		normalized := authz.NormalizeRole(*role)
		if !authz.IsValidRole(normalized) {
			return repo.Usuario{}, fmt.Errorf("%w: papel inválido", ErrValidation)
		}
		if normalized == authz.RoleSuperAdmin && !p.IsSuperAdmin() {
			return repo.Usuario{}, authz.ErrForbidden
		}
		roleVal = &normalized
	}

	return s.repo.UpdateUsuarioAccess(ctx, id, roleVal, ativo)
}
