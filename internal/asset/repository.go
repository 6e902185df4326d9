package asset

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de ativos.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assetColumns = `id, tenant_id, nome, categoria, local_id, setor_id, qr_token, criado_em`

// Create insere ativo com o token informado. Colisão de token devolve
// ErrTokenTaken para o serviço gerar outro e tentar de novo.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, input CreateAssetInput, qrToken string) (*Asset, error) {
	const query = `
        INSERT INTO ativos (tenant_id, nome, categoria, local_id, setor_id, qr_token)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + assetColumns + `
    `
	row := r.pool.QueryRow(ctx, query, tenantID, input.Nome, input.Categoria, input.LocalID, input.SetorID, qrToken)
	a, err := scanAsset(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "ativos_qr_token_key" {
			return nil, ErrTokenTaken
		}
		return nil, err
	}
	return a, nil
}

// GetByID busca ativo pelo identificador interno.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Asset, error) {
	const query = `
        SELECT ` + assetColumns + `
        FROM ativos
        WHERE id = $1
    `
	return scanAsset(r.pool.QueryRow(ctx, query, id))
}

// GetByToken resolve o token de QR para a projeção pública do ativo.
// Seleciona apenas as colunas necessárias; o registro completo nunca sai
// deste método para o caminho anônimo.
func (r *Repository) GetByToken(ctx context.Context, token string) (*PublicAsset, error) {
	const query = `
        SELECT id, nome, tenant_id, local_id, setor_id
        FROM ativos
        WHERE qr_token = $1
    `
	var p PublicAsset
	err := r.pool.QueryRow(ctx, query, token).Scan(&p.ID, &p.Nome, &p.TenantID, &p.LocalID, &p.SetorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByTenant devolve os ativos do tenant por criação.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Asset, error) {
	const query = `
        SELECT ` + assetColumns + `
        FROM ativos
        WHERE tenant_id = $1
        ORDER BY criado_em DESC
    `
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

func scanAsset(row pgx.Row) (*Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.TenantID, &a.Nome, &a.Categoria, &a.LocalID, &a.SetorID, &a.QRToken, &a.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
