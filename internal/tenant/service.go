package tenant

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service contém as regras de negócio para resolução e cadastro de tenants.
type Service struct {
	repo     *Repository
	cache    sync.Map
	cacheTTL time.Duration
}

// cachedTenant armazena dados no cache em memória.
type cachedTenant struct {
	tenant   Tenant
	expireAt time.Time
}

// NewService cria uma nova instância de Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, cacheTTL: 2 * time.Minute}
}

// Resolve encontra tenant pelo host informado.
func (s *Service) Resolve(ctx context.Context, host string) (*Tenant, error) {
	normalized := normalizeDomain(host)
	if normalized == "" {
		return nil, ErrNotFound
	}

	if v, ok := s.cache.Load(normalized); ok {
		entry := v.(cachedTenant)
		if time.Now().Before(entry.expireAt) {
			tenantCopy := entry.tenant
			return &tenantCopy, nil
		}
		s.cache.Delete(normalized)
	}

	tenant, err := s.repo.GetByDomain(ctx, normalized)
	if err != nil {
		return nil, err
	}

	s.cache.Store(normalized, cachedTenant{tenant: *tenant, expireAt: time.Now().Add(s.cacheTTL)})

	tenantCopy := *tenant
	return &tenantCopy, nil
}

// Get busca tenant por identificador (console administrativo).
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// List devolve todos os tenants (console administrativo).
func (s *Service) List(ctx context.Context) ([]Tenant, error) {
	return s.repo.List(ctx)
}

// Create registra um novo tenant.
func (s *Service) Create(ctx context.Context, input CreateTenantInput) (*Tenant, error) {
	input.Slug = normalizeSlug(input.Slug)
	input.Domain = normalizeDomain(input.Domain)
	if input.Settings == nil {
		input.Settings = map[string]any{}
	}

	tenant, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.cache.Store(tenant.Domain, cachedTenant{tenant: *tenant, expireAt: time.Now().Add(s.cacheTTL)})
	return tenant, nil
}

func normalizeDomain(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func normalizeSlug(slug string) string {
	return strings.TrimSpace(strings.ToLower(slug))
}
