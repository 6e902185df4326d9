package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbanbyte/chamados/internal/asset"
	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
)

// Store abstrai a persistência de chamados.
type Store interface {
	Create(ctx context.Context, rec CreateRecord) (*Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetByReadableID(ctx context.Context, tenantID uuid.UUID, readableID int64) (*Ticket, error)
	List(ctx context.Context, filter Filter) ([]Ticket, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to string) (*Ticket, error)
}

// AssetResolver resolve tokens de QR para a projeção pública do ativo.
type AssetResolver interface {
	ResolveByToken(ctx context.Context, token string) (*asset.PublicAsset, error)
}

// CatalogStore valida locais e setores e fornece o local padrão do tenant.
type CatalogStore interface {
	GetLocal(ctx context.Context, id uuid.UUID) (repo.Local, error)
	DefaultLocal(ctx context.Context, tenantID uuid.UUID) (repo.Local, error)
	GetSetor(ctx context.Context, id uuid.UUID) (repo.Setor, error)
}

// Service é o motor de ciclo de vida dos chamados.
type Service struct {
	store   Store
	assets  AssetResolver
	catalog CatalogStore
	logger  zerolog.Logger
}

// NewService cria o serviço.
func NewService(store Store, assets AssetResolver, catalog CatalogStore, logger zerolog.Logger) *Service {
	return &Service{store: store, assets: assets, catalog: catalog, logger: logger}
}

// Create abre um chamado pelo caminho autenticado. Tenant e autor vêm do
// principal; o local informado precisa pertencer ao tenant e, quando omitido,
// vale o local padrão do tenant.
func (s *Service) Create(ctx context.Context, p authz.Principal, input CreateInput) (*Ticket, error) {
	if err := authz.Require(p, authz.ActionCreateTicket); err != nil {
		return nil, err
	}

	rec := CreateRecord{
		TenantID:   p.TenantID,
		CreatedBy:  &p.UserID,
		SetorID:    input.SetorID,
		Descricao:  input.Descricao,
		Prioridade: input.Prioridade,
	}

	if input.LocalID != nil {
		local, err := s.catalog.GetLocal(ctx, *input.LocalID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("%w: local inválido", ErrValidation)
			}
			return nil, err
		}
		if err := authz.CheckTenant(p, local.TenantID); err != nil {
			return nil, err
		}
		rec.LocalID = local.ID
	} else {
		local, err := s.catalog.DefaultLocal(ctx, p.TenantID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("%w: tenant sem local cadastrado", ErrValidation)
			}
			return nil, err
		}
		rec.LocalID = local.ID
	}

	if rec.SetorID != nil {
		// Setor é opcional, mas quando vem precisa existir no mesmo tenant.
		setor, err := s.catalog.GetSetor(ctx, *rec.SetorID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("%w: setor inválido", ErrValidation)
			}
			return nil, err
		}
		if err := authz.CheckTenant(p, setor.TenantID); err != nil {
			return nil, err
		}
	}

	return s.create(ctx, rec)
}

// CreateAnonymous abre um chamado pelo caminho anônimo. Tenant, local e setor
// derivam exclusivamente do ativo resolvido pelo token; nada vem do chamador.
// Esta é a fronteira crítica de isolamento do endpoint sem sessão.
func (s *Service) CreateAnonymous(ctx context.Context, input CreateAnonInput) (*Ticket, error) {
	if err := authz.Require(authz.Anonymous(), authz.ActionCreateTicketAnon); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(input.QRToken)
	if token == "" {
		return nil, fmt.Errorf("%w: qr_token obrigatório", ErrValidation)
	}

	resolved, err := s.assets.ResolveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}

	setorID := resolved.SetorID
	assetID := resolved.ID
	return s.create(ctx, CreateRecord{
		TenantID:   resolved.TenantID,
		CreatedBy:  nil,
		LocalID:    resolved.LocalID,
		SetorID:    &setorID,
		AssetID:    &assetID,
		Descricao:  input.Descricao,
		Prioridade: input.Prioridade,
	})
}

// create é o primitivo compartilhado de criação: valida campos, força o
// estado inicial aberto e repete uma vez em caso de corrida de protocolo.
func (s *Service) create(ctx context.Context, rec CreateRecord) (*Ticket, error) {
	rec.Descricao = strings.TrimSpace(rec.Descricao)
	if rec.Descricao == "" {
		return nil, fmt.Errorf("%w: descrição obrigatória", ErrValidation)
	}

	rec.Prioridade = NormalizePrioridade(rec.Prioridade)
	if !IsValidPrioridade(rec.Prioridade) {
		return nil, fmt.Errorf("%w: prioridade inválida", ErrValidation)
	}

	created, err := s.store.Create(ctx, rec)
	if errors.Is(err, ErrConflict) {
		s.logger.Warn().Str("tenant_id", rec.TenantID.String()).Msg("corrida na alocação de protocolo, repetindo")
		created, err = s.store.Create(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// List devolve chamados do tenant do principal. mine restringe aos criados
// pelo próprio principal; a listagem completa exige capacidade própria.
func (s *Service) List(ctx context.Context, p authz.Principal, mine bool, statuses []string, limit, offset int) ([]Ticket, error) {
	filter := Filter{TenantID: p.TenantID, Limit: limit, Offset: offset}

	if mine {
		if err := authz.Require(p, authz.ActionListOwnTickets); err != nil {
			return nil, err
		}
		filter.CreatedBy = &p.UserID
	} else {
		if err := authz.Require(p, authz.ActionListTenantTickets); err != nil {
			return nil, err
		}
	}

	if len(statuses) > 0 {
		normalized := make([]string, 0, len(statuses))
		for _, status := range statuses {
			status = NormalizeStatus(status)
			if IsValidStatus(status) {
				normalized = append(normalized, status)
			}
		}
		filter.Status = normalized
	}

	return s.store.List(ctx, filter)
}

// Get devolve um chamado do tenant do principal. Quem não pode listar o
// tenant inteiro só enxerga os próprios chamados. Leitura administrativa de
// SUPER_ADMIN atravessa tenants; mutação nunca.
func (s *Service) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (*Ticket, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckTenantRead(p, t.TenantID); err != nil {
		return nil, err
	}

	if !authz.Allowed(p, authz.ActionListTenantTickets) {
		if t.CreatedBy == nil || *t.CreatedBy != p.UserID {
			return nil, authz.ErrForbidden
		}
	}
	return t, nil
}

// ChangeStatus aplica uma transição da máquina de estados via CAS. Transição
// para o estado atual é no-op de sucesso; corrida residual é repetida uma vez
// antes de aflorar como ErrConflict.
func (s *Service) ChangeStatus(ctx context.Context, p authz.Principal, id uuid.UUID, to string) (*Ticket, error) {
	if err := authz.Require(p, authz.ActionChangeTicketStatus); err != nil {
		return nil, err
	}

	to = NormalizeStatus(to)

	for attempt := 0; attempt < 2; attempt++ {
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authz.CheckTenant(p, current.TenantID); err != nil {
			return nil, err
		}

		noop, err := CanTransition(current.Status, to)
		if err != nil {
			return nil, err
		}
		if noop {
			return current, nil
		}

		updated, err := s.store.UpdateStatusCAS(ctx, id, current.Status, to)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, errStaleStatus) {
			return nil, err
		}
		// Estado mudou entre a leitura e o CAS; reavalia uma única vez.
	}

	return nil, ErrConflict
}

// TrackByProtocol resolve o protocolo dentro de um tenant para a visão
// pública. Único caminho de consulta anônima: sem navegação da lista.
func (s *Service) TrackByProtocol(ctx context.Context, tenantID uuid.UUID, readableID int64) (*PublicTicket, error) {
	if err := authz.Require(authz.Anonymous(), authz.ActionLookupProtocol); err != nil {
		return nil, err
	}

	t, err := s.store.GetByReadableID(ctx, tenantID, readableID)
	if err != nil {
		return nil, err
	}
	view := t.Public()
	return &view, nil
}
