package asset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
)

type stubAssetStore struct {
	assets      map[uuid.UUID]*Asset
	createErrs  []error
	createCalls int
	seenTokens  []string
}

func newStubAssetStore() *stubAssetStore {
	return &stubAssetStore{assets: make(map[uuid.UUID]*Asset)}
}

func (s *stubAssetStore) Create(ctx context.Context, tenantID uuid.UUID, input CreateAssetInput, qrToken string) (*Asset, error) {
	s.createCalls++
	s.seenTokens = append(s.seenTokens, qrToken)
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	a := &Asset{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Nome:      input.Nome,
		Categoria: input.Categoria,
		LocalID:   input.LocalID,
		SetorID:   input.SetorID,
		QRToken:   qrToken,
	}
	s.assets[a.ID] = a
	return a, nil
}

func (s *stubAssetStore) GetByID(ctx context.Context, id uuid.UUID) (*Asset, error) {
	a, ok := s.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *stubAssetStore) GetByToken(ctx context.Context, token string) (*PublicAsset, error) {
	for _, a := range s.assets {
		if a.QRToken == token {
			return &PublicAsset{ID: a.ID, Nome: a.Nome, TenantID: a.TenantID, LocalID: a.LocalID, SetorID: a.SetorID}, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubAssetStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Asset, error) {
	var out []Asset
	for _, a := range s.assets {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type stubAssetCatalog struct {
	locais  map[uuid.UUID]repo.Local
	setores map[uuid.UUID]repo.Setor
}

func (s *stubAssetCatalog) GetLocal(ctx context.Context, id uuid.UUID) (repo.Local, error) {
	l, ok := s.locais[id]
	if !ok {
		return repo.Local{}, repo.ErrNotFound
	}
	return l, nil
}

func (s *stubAssetCatalog) GetSetor(ctx context.Context, id uuid.UUID) (repo.Setor, error) {
	st, ok := s.setores[id]
	if !ok {
		return repo.Setor{}, repo.ErrNotFound
	}
	return st, nil
}

func catalogFor(tenantID uuid.UUID, localID, setorID uuid.UUID) *stubAssetCatalog {
	return &stubAssetCatalog{
		locais:  map[uuid.UUID]repo.Local{localID: {ID: localID, TenantID: tenantID}},
		setores: map[uuid.UUID]repo.Setor{setorID: {ID: setorID, TenantID: tenantID}},
	}
}

func TestCreateAssetGeneratesFreshToken(t *testing.T) {
	tenantID := uuid.New()
	localID := uuid.New()
	setorID := uuid.New()

	store := newStubAssetStore()
	svc := NewService(store, catalogFor(tenantID, localID, setorID), "https://chamados.example.com")

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleTecnico}
	created, err := svc.Create(context.Background(), p, CreateAssetInput{
		Nome:      "Ar-condicionado sala 3",
		Categoria: "climatizacao",
		LocalID:   localID,
		SetorID:   setorID,
	})
	if err != nil {
		t.Fatalf("cadastro de ativo falhou: %v", err)
	}

	if created.TenantID != tenantID {
		t.Fatalf("tenant deveria vir do principal, obtido %s", created.TenantID)
	}
	if created.QRToken == "" {
		t.Fatal("token de QR não gerado")
	}
	// 16 bytes em base64url sem padding.
	if len(created.QRToken) != 22 {
		t.Fatalf("token com tamanho inesperado %d: %q", len(created.QRToken), created.QRToken)
	}
}

func TestCreateAssetRetriesOnTokenCollision(t *testing.T) {
	tenantID := uuid.New()
	localID := uuid.New()
	setorID := uuid.New()

	store := newStubAssetStore()
	store.createErrs = []error{ErrTokenTaken, ErrTokenTaken}
	svc := NewService(store, catalogFor(tenantID, localID, setorID), "http://localhost:5173")

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleGestor}
	_, err := svc.Create(context.Background(), p, CreateAssetInput{
		Nome: "Impressora", Categoria: "ti", LocalID: localID, SetorID: setorID,
	})
	if err != nil {
		t.Fatalf("colisões deveriam ser repetidas: %v", err)
	}
	if store.createCalls != 3 {
		t.Fatalf("esperadas 3 tentativas, obtidas %d", store.createCalls)
	}
	if store.seenTokens[0] == store.seenTokens[1] || store.seenTokens[1] == store.seenTokens[2] {
		t.Fatal("cada tentativa deveria usar token novo")
	}
}

func TestCreateAssetDeniedForUsuario(t *testing.T) {
	tenantID := uuid.New()
	svc := NewService(newStubAssetStore(), &stubAssetCatalog{}, "http://localhost:5173")

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleUsuario}
	_, err := svc.Create(context.Background(), p, CreateAssetInput{Nome: "x", Categoria: "y", LocalID: uuid.New(), SetorID: uuid.New()})
	if !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("USUARIO não cadastra ativos, obtido %v", err)
	}
}

func TestCreateAssetRejectsForeignSector(t *testing.T) {
	tenantID := uuid.New()
	localID := uuid.New()
	setorID := uuid.New()

	catalog := catalogFor(tenantID, localID, setorID)
	catalog.setores[setorID] = repo.Setor{ID: setorID, TenantID: uuid.New()}

	svc := NewService(newStubAssetStore(), catalog, "http://localhost:5173")

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleGestor}
	_, err := svc.Create(context.Background(), p, CreateAssetInput{Nome: "x", Categoria: "y", LocalID: localID, SetorID: setorID})
	if !errors.Is(err, authz.ErrCrossTenant) {
		t.Fatalf("setor de outro tenant deveria ser negado, obtido %v", err)
	}
}

func TestResolveByTokenReturnsNarrowProjection(t *testing.T) {
	tenantID := uuid.New()
	localID := uuid.New()
	setorID := uuid.New()

	store := newStubAssetStore()
	svc := NewService(store, catalogFor(tenantID, localID, setorID), "http://localhost:5173")

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleGestor}
	created, err := svc.Create(context.Background(), p, CreateAssetInput{Nome: "Bebedouro", Categoria: "hidraulica", LocalID: localID, SetorID: setorID})
	if err != nil {
		t.Fatalf("cadastro falhou: %v", err)
	}

	pub, err := svc.ResolveByToken(context.Background(), created.QRToken)
	if err != nil {
		t.Fatalf("resolução por token falhou: %v", err)
	}
	if pub.ID != created.ID || pub.Nome != "Bebedouro" || pub.TenantID != tenantID || pub.LocalID != localID || pub.SetorID != setorID {
		t.Fatalf("projeção pública incorreta: %+v", pub)
	}

	if _, err := svc.ResolveByToken(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("token vazio deveria ser NotFound, obtido %v", err)
	}
}

func TestBuildLabel(t *testing.T) {
	tenantID := uuid.New()
	localID := uuid.New()
	setorID := uuid.New()

	store := newStubAssetStore()
	svc := NewService(store, catalogFor(tenantID, localID, setorID), "https://pmzabele.chamados.example.com/")

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleGestor}
	created, err := svc.Create(context.Background(), p, CreateAssetInput{Nome: "Projetor", Categoria: "ti", LocalID: localID, SetorID: setorID})
	if err != nil {
		t.Fatalf("cadastro falhou: %v", err)
	}

	label, err := svc.BuildLabel(context.Background(), p, created.ID)
	if err != nil {
		t.Fatalf("etiqueta falhou: %v", err)
	}

	want := "https://pmzabele.chamados.example.com/abrir-chamado?hash=" + created.QRToken
	if label.URL != want {
		t.Fatalf("URL da etiqueta esperada %q, obtida %q", want, label.URL)
	}
	if strings.Contains(label.URL, "//abrir-chamado") {
		t.Fatal("barra duplicada na URL da etiqueta")
	}

	// Etiqueta de ativo de outro tenant é negada.
	foreign := authz.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleGestor}
	if _, err := svc.BuildLabel(context.Background(), foreign, created.ID); !errors.Is(err, authz.ErrCrossTenant) {
		t.Fatalf("esperado ErrCrossTenant, obtido %v", err)
	}
}
