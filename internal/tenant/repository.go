package tenant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso ao armazenamento de tenants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de tenants.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tenantColumns = `id, slug, display_name, domain, settings, created_at, updated_at`

// GetByDomain busca tenant pelo domínio normalizado.
func (r *Repository) GetByDomain(ctx context.Context, domain string) (*Tenant, error) {
	const query = `
        SELECT ` + tenantColumns + `
        FROM tenants
        WHERE domain = $1
    `
	return scanTenant(r.pool.QueryRow(ctx, query, domain))
}

// GetByID busca tenant pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	const query = `
        SELECT ` + tenantColumns + `
        FROM tenants
        WHERE id = $1
    `
	return scanTenant(r.pool.QueryRow(ctx, query, id))
}

// List devolve todos os tenants ordenados por criação.
func (r *Repository) List(ctx context.Context) ([]Tenant, error) {
	const query = `
        SELECT ` + tenantColumns + `
        FROM tenants
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

// Create insere um novo tenant e devolve os dados persistidos.
func (r *Repository) Create(ctx context.Context, input CreateTenantInput) (*Tenant, error) {
	const query = `
        INSERT INTO tenants (slug, display_name, domain, settings)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + tenantColumns + `
    `
	settingsJSON, err := jsonMarshalMap(input.Settings)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(strings.ToLower(input.Slug)),
		strings.TrimSpace(input.DisplayName),
		strings.TrimSpace(strings.ToLower(input.Domain)),
		settingsJSON,
	)
	return scanTenant(row)
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var (
		t           Tenant
		settingsRaw []byte
	)
	if err := row.Scan(&t.ID, &t.Slug, &t.DisplayName, &t.Domain, &settingsRaw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	settings, err := decodeJSONMap(settingsRaw)
	if err != nil {
		return nil, err
	}
	t.Settings = settings

	return &t, nil
}

func decodeJSONMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}

func jsonMarshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
