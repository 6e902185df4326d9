package asset

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
)

const tokenAttempts = 3

// Store abstrai a persistência de ativos.
type Store interface {
	Create(ctx context.Context, tenantID uuid.UUID, input CreateAssetInput, qrToken string) (*Asset, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)
	GetByToken(ctx context.Context, token string) (*PublicAsset, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Asset, error)
}

// CatalogStore valida setor e local referenciados pelo ativo.
type CatalogStore interface {
	GetSetor(ctx context.Context, id uuid.UUID) (repo.Setor, error)
	GetLocal(ctx context.Context, id uuid.UUID) (repo.Local, error)
}

// Service concentra as regras do registro de ativos.
type Service struct {
	store     Store
	catalog   CatalogStore
	publicURL string
}

// NewService cria o serviço. publicURL é a base usada nas etiquetas.
func NewService(store Store, catalog CatalogStore, publicURL string) *Service {
	return &Service{store: store, catalog: catalog, publicURL: strings.TrimRight(publicURL, "/")}
}

// Create cadastra um ativo para o tenant do principal. O tenant_id vem
// sempre do principal, nunca do corpo da requisição.
func (s *Service) Create(ctx context.Context, p authz.Principal, input CreateAssetInput) (*Asset, error) {
	if err := authz.Require(p, authz.ActionCreateAssets); err != nil {
		return nil, err
	}

	input.Nome = strings.TrimSpace(input.Nome)
	input.Categoria = strings.TrimSpace(input.Categoria)
	if input.Nome == "" {
		return nil, fmt.Errorf("%w: nome obrigatório", ErrValidation)
	}
	if input.Categoria == "" {
		return nil, fmt.Errorf("%w: categoria obrigatória", ErrValidation)
	}

	local, err := s.catalog.GetLocal(ctx, input.LocalID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: local inválido", ErrValidation)
		}
		return nil, err
	}
	if err := authz.CheckTenant(p, local.TenantID); err != nil {
		return nil, err
	}

	setor, err := s.catalog.GetSetor(ctx, input.SetorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: setor inválido", ErrValidation)
		}
		return nil, err
	}
	if err := authz.CheckTenant(p, setor.TenantID); err != nil {
		return nil, err
	}

	var created *Asset
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		token, err := newQRToken()
		if err != nil {
			return nil, err
		}
		created, err = s.store.Create(ctx, p.TenantID, input, token)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrTokenTaken) {
			return nil, err
		}
	}
	return nil, ErrTokenTaken
}

// List devolve os ativos do tenant do principal.
func (s *Service) List(ctx context.Context, p authz.Principal) ([]Asset, error) {
	if err := authz.Require(p, authz.ActionReadAssets); err != nil {
		return nil, err
	}
	return s.store.ListByTenant(ctx, p.TenantID)
}

// ResolveByToken resolve o token de QR para a projeção pública mínima.
// Caminho não autenticado; único uso é a abertura anônima de chamados.
func (s *Service) ResolveByToken(ctx context.Context, token string) (*PublicAsset, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	return s.store.GetByToken(ctx, token)
}

// BuildLabel monta os dados da etiqueta imprimível do ativo.
func (s *Service) BuildLabel(ctx context.Context, p authz.Principal, id uuid.UUID) (*Label, error) {
	if err := authz.Require(p, authz.ActionReadAssets); err != nil {
		return nil, err
	}

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckTenant(p, a.TenantID); err != nil {
		return nil, err
	}

	return &Label{
		Nome:    a.Nome,
		QRToken: a.QRToken,
		URL:     fmt.Sprintf("%s/abrir-chamado?hash=%s", s.publicURL, a.QRToken),
	}, nil
}

// newQRToken gera 16 bytes aleatórios em base64url. Unicidade global é
// garantida pelo índice único; colisão resulta em ErrTokenTaken e retry.
func newQRToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
