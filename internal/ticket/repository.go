package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbanbyte/chamados/internal/db"
)

// errStaleStatus sinaliza CAS de status que não encontrou o estado esperado.
var errStaleStatus = errors.New("stale status")

// Repository provê acesso às tabelas de chamados e contadores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id, tenant_id, readable_id, created_by, local_id, setor_id, ativo_id, descricao, prioridade, status, criado_em`

// Create insere o chamado alocando o protocolo sequencial do tenant na mesma
// transação. O upsert no contador serializa alocações concorrentes; o índice
// único (tenant_id, readable_id) transforma qualquer corrida residual em
// ErrConflict para o serviço repetir.
func (r *Repository) Create(ctx context.Context, rec CreateRecord) (*Ticket, error) {
	var created *Ticket

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		const nextID = `
            INSERT INTO contadores_chamados (tenant_id, ultimo_valor)
            VALUES ($1, 1)
            ON CONFLICT (tenant_id)
            DO UPDATE SET ultimo_valor = contadores_chamados.ultimo_valor + 1
            RETURNING ultimo_valor
        `
		var readableID int64
		if err := tx.QueryRow(ctx, nextID, rec.TenantID).Scan(&readableID); err != nil {
			return err
		}

		const insert = `
            INSERT INTO chamados (tenant_id, readable_id, created_by, local_id, setor_id, ativo_id, descricao, prioridade, status)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING ` + ticketColumns + `
        `
		row := tx.QueryRow(ctx, insert,
			rec.TenantID,
			readableID,
			rec.CreatedBy,
			rec.LocalID,
			rec.SetorID,
			rec.AssetID,
			rec.Descricao,
			rec.Prioridade,
			StatusAberto,
		)

		t, err := scanTicket(row)
		if err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, err
	}

	return created, nil
}

// GetByID busca um chamado pelo identificador interno.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM chamados
        WHERE id = $1
    `
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

// GetByReadableID busca um chamado pelo protocolo dentro do tenant.
func (r *Repository) GetByReadableID(ctx context.Context, tenantID uuid.UUID, readableID int64) (*Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM chamados
        WHERE tenant_id = $1 AND readable_id = $2
    `
	return scanTicket(r.pool.QueryRow(ctx, query, tenantID, readableID))
}

// List lista chamados do tenant aplicando filtros simples.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Ticket, error) {
	base := `
        SELECT ` + ticketColumns + `
        FROM chamados
        WHERE tenant_id = $1`

	args := []any{filter.TenantID}
	idx := 2

	if filter.CreatedBy != nil {
		base += fmt.Sprintf(" AND created_by = $%d", idx)
		args = append(args, *filter.CreatedBy)
		idx++
	}

	if len(filter.Status) > 0 {
		normalized := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			normalized[i] = strings.ToLower(strings.TrimSpace(status))
		}
		base += fmt.Sprintf(" AND status = ANY($%d)", idx)
		args = append(args, normalized)
		idx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	base += fmt.Sprintf(" ORDER BY criado_em DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, base, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// UpdateStatusCAS aplica a transição apenas se o status atual for o esperado.
// Nenhuma linha afetada significa estado obsoleto: o serviço relê e decide.
func (r *Repository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to string) (*Ticket, error) {
	const query = `
        UPDATE chamados
        SET status = $3, atualizado_em = now()
        WHERE id = $1 AND status = $2
        RETURNING ` + ticketColumns + `
    `
	t, err := scanTicket(r.pool.QueryRow(ctx, query, id, from, to))
	if errors.Is(err, ErrNotFound) {
		return nil, errStaleStatus
	}
	return t, err
}

// Snapshot lê as contagens por status e por setor num snapshot consistente
// (REPEATABLE READ), seguro sob mutação concorrente de chamados.
func (r *Repository) Snapshot(ctx context.Context, tenantID uuid.UUID) ([]StatusCount, []SectorCount, error) {
	var (
		statuses []StatusCount
		sectors  []SectorCount
	)

	err := db.WithSnapshotTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		const byStatus = `
            SELECT status, count(*)
            FROM chamados
            WHERE tenant_id = $1
            GROUP BY status
        `
		rows, err := tx.Query(ctx, byStatus, tenantID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var sc StatusCount
			if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
				rows.Close()
				return err
			}
			statuses = append(statuses, sc)
		}
		rows.Close()
		if rows.Err() != nil {
			return rows.Err()
		}

		const bySector = `
            SELECT COALESCE(s.nome, 'Sem setor'), count(*)
            FROM chamados c
            LEFT JOIN setores s ON s.id = c.setor_id
            WHERE c.tenant_id = $1
            GROUP BY 1
            ORDER BY 2 DESC, 1
        `
		rows, err = tx.Query(ctx, bySector, tenantID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var sc SectorCount
			if err := rows.Scan(&sc.Label, &sc.Count); err != nil {
				return err
			}
			sectors = append(sectors, sc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	return statuses, sectors, nil
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.TenantID, &t.ReadableID, &t.CreatedBy, &t.LocalID, &t.SetorID, &t.AssetID, &t.Descricao, &t.Prioridade, &t.Status, &t.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
