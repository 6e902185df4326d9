package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbanbyte/chamados/internal/authz"
)

// Queries concentra acesso às tabelas de usuários, catálogo e sessões.
type Queries struct {
	pool *pgxpool.Pool
}

// New cria instância de Queries.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const usuarioColumns = `id, tenant_id, nome, email, senha_hash, role, ativo, criado_em`

// GetUsuarioByEmail busca usuário pelo e-mail normalizado.
func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE lower(email) = lower($1)
    `
	row := q.pool.QueryRow(ctx, query, strings.TrimSpace(email))
	return scanUsuario(row)
}

// GetUsuarioByID busca usuário pelo identificador.
func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE id = $1
    `
	row := q.pool.QueryRow(ctx, query, id)
	return scanUsuario(row)
}

// ListUsuariosByTenant devolve usuários do tenant ordenados por criação.
func (q *Queries) ListUsuariosByTenant(ctx context.Context, tenantID uuid.UUID) ([]Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE tenant_id = $1
        ORDER BY criado_em DESC
    `
	rows, err := q.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, u)
	}
	return usuarios, rows.Err()
}

// CreateUsuario insere perfil novo (inativo até aceitar convite, salvo seed).
func (q *Queries) CreateUsuario(ctx context.Context, tenantID uuid.UUID, nome, email string, role authz.Role, ativo bool, senhaHash *string) (Usuario, error) {
	const query = `
        INSERT INTO usuarios (tenant_id, nome, email, senha_hash, role, ativo)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + usuarioColumns + `
    `
	row := q.pool.QueryRow(ctx, query, tenantID, strings.TrimSpace(nome), strings.ToLower(strings.TrimSpace(email)), senhaHash, string(role), ativo)
	u, err := scanUsuario(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Usuario{}, ErrDuplicated
		}
		return Usuario{}, err
	}
	return u, nil
}

// UpdateUsuarioAccess altera papel e/ou flag de ativação.
func (q *Queries) UpdateUsuarioAccess(ctx context.Context, id uuid.UUID, role *authz.Role, ativo *bool) (Usuario, error) {
	const query = `
        UPDATE usuarios
        SET role = COALESCE($2, role),
            ativo = COALESCE($3, ativo)
        WHERE id = $1
        RETURNING ` + usuarioColumns + `
    `
	var roleVal *string
	if role != nil {
		v := string(*role)
		roleVal = &v
	}
	row := q.pool.QueryRow(ctx, query, id, roleVal, ativo)
	return scanUsuario(row)
}

// ActivateUsuario grava a senha e ativa o perfil (aceite de convite).
func (q *Queries) ActivateUsuario(ctx context.Context, id uuid.UUID, senhaHash string) error {
	const query = `
        UPDATE usuarios
        SET senha_hash = $2, ativo = true
        WHERE id = $1
    `
	tag, err := q.pool.Exec(ctx, query, id, senhaHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSetores devolve setores do tenant por nome.
func (q *Queries) ListSetores(ctx context.Context, tenantID uuid.UUID) ([]Setor, error) {
	const query = `
        SELECT id, tenant_id, nome, criado_em
        FROM setores
        WHERE tenant_id = $1
        ORDER BY nome
    `
	rows, err := q.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var setores []Setor
	for rows.Next() {
		var s Setor
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Nome, &s.CriadoEm); err != nil {
			return nil, err
		}
		setores = append(setores, s)
	}
	return setores, rows.Err()
}

// GetSetor busca setor pelo identificador.
func (q *Queries) GetSetor(ctx context.Context, id uuid.UUID) (Setor, error) {
	const query = `
        SELECT id, tenant_id, nome, criado_em
        FROM setores
        WHERE id = $1
    `
	var s Setor
	err := q.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.TenantID, &s.Nome, &s.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return Setor{}, ErrNotFound
	}
	return s, err
}

// CreateSetor insere setor novo no tenant.
func (q *Queries) CreateSetor(ctx context.Context, tenantID uuid.UUID, nome string) (Setor, error) {
	const query = `
        INSERT INTO setores (tenant_id, nome)
        VALUES ($1, $2)
        RETURNING id, tenant_id, nome, criado_em
    `
	var s Setor
	err := q.pool.QueryRow(ctx, query, tenantID, strings.TrimSpace(nome)).
		Scan(&s.ID, &s.TenantID, &s.Nome, &s.CriadoEm)
	if isUniqueViolation(err) {
		return Setor{}, ErrDuplicated
	}
	return s, err
}

// ListLocais devolve locais do tenant por nome.
func (q *Queries) ListLocais(ctx context.Context, tenantID uuid.UUID) ([]Local, error) {
	const query = `
        SELECT id, tenant_id, nome, criado_em
        FROM locais
        WHERE tenant_id = $1
        ORDER BY nome
    `
	rows, err := q.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locais []Local
	for rows.Next() {
		var l Local
		if err := rows.Scan(&l.ID, &l.TenantID, &l.Nome, &l.CriadoEm); err != nil {
			return nil, err
		}
		locais = append(locais, l)
	}
	return locais, rows.Err()
}

// GetLocal busca local pelo identificador.
func (q *Queries) GetLocal(ctx context.Context, id uuid.UUID) (Local, error) {
	const query = `
        SELECT id, tenant_id, nome, criado_em
        FROM locais
        WHERE id = $1
    `
	var l Local
	err := q.pool.QueryRow(ctx, query, id).Scan(&l.ID, &l.TenantID, &l.Nome, &l.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return Local{}, ErrNotFound
	}
	return l, err
}

// DefaultLocal devolve o local padrão do tenant (o mais antigo cadastrado).
func (q *Queries) DefaultLocal(ctx context.Context, tenantID uuid.UUID) (Local, error) {
	const query = `
        SELECT id, tenant_id, nome, criado_em
        FROM locais
        WHERE tenant_id = $1
        ORDER BY criado_em
        LIMIT 1
    `
	var l Local
	err := q.pool.QueryRow(ctx, query, tenantID).Scan(&l.ID, &l.TenantID, &l.Nome, &l.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return Local{}, ErrNotFound
	}
	return l, err
}

// CreateLocal insere local novo no tenant.
func (q *Queries) CreateLocal(ctx context.Context, tenantID uuid.UUID, nome string) (Local, error) {
	const query = `
        INSERT INTO locais (tenant_id, nome)
        VALUES ($1, $2)
        RETURNING id, tenant_id, nome, criado_em
    `
	var l Local
	err := q.pool.QueryRow(ctx, query, tenantID, strings.TrimSpace(nome)).
		Scan(&l.ID, &l.TenantID, &l.Nome, &l.CriadoEm)
	if isUniqueViolation(err) {
		return Local{}, ErrDuplicated
	}
	return l, err
}

// InsertRefreshToken registra novo refresh token.
func (q *Queries) InsertRefreshToken(ctx context.Context, arg InsertRefreshTokenParams) (TokenRefresh, error) {
	const query = `
        INSERT INTO tokens_refresh (subject, audience, token_hash, expiracao)
        VALUES ($1, $2, $3, $4)
        RETURNING id, subject, audience, token_hash, expiracao, criado_em, revogado
    `
	var t TokenRefresh
	err := q.pool.QueryRow(ctx, query, arg.Subject, arg.Audience, arg.TokenHash, arg.Expiracao).
		Scan(&t.ID, &t.Subject, &t.Audience, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado)
	return t, err
}

// GetRefreshTokenByHash busca refresh token válido pelo hash.
func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (TokenRefresh, error) {
	const query = `
        SELECT id, subject, audience, token_hash, expiracao, criado_em, revogado
        FROM tokens_refresh
        WHERE token_hash = $1
    `
	var t TokenRefresh
	err := q.pool.QueryRow(ctx, query, tokenHash).
		Scan(&t.ID, &t.Subject, &t.Audience, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado)
	if errors.Is(err, pgx.ErrNoRows) {
		return TokenRefresh{}, ErrNotFound
	}
	return t, err
}

// RevokeRefreshToken marca o token como revogado.
func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	const query = `
        UPDATE tokens_refresh
        SET revogado = true
        WHERE token_hash = $1
    `
	_, err := q.pool.Exec(ctx, query, tokenHash)
	return err
}

// InvalidateOtherRefreshTokens revoga todos os tokens do sujeito exceto o atual.
func (q *Queries) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, audience, keepHash string) error {
	const query = `
        UPDATE tokens_refresh
        SET revogado = true
        WHERE subject = $1 AND audience = $2 AND token_hash <> $3
    `
	_, err := q.pool.Exec(ctx, query, subject, audience, keepHash)
	return err
}

// CreateConvite registra convite pendente com validade.
func (q *Queries) CreateConvite(ctx context.Context, tenantID, usuarioID uuid.UUID, tokenHash string, expiracao time.Time) (Convite, error) {
	const query = `
        INSERT INTO convites (tenant_id, usuario_id, token_hash, expiracao)
        VALUES ($1, $2, $3, $4)
        RETURNING id, tenant_id, usuario_id, token_hash, expiracao, aceito_em, criado_em
    `
	var c Convite
	err := q.pool.QueryRow(ctx, query, tenantID, usuarioID, tokenHash, expiracao).
		Scan(&c.ID, &c.TenantID, &c.UsuarioID, &c.TokenHash, &c.Expiracao, &c.AceitoEm, &c.CriadoEm)
	return c, err
}

// GetConviteByTokenHash busca convite pelo hash do token.
func (q *Queries) GetConviteByTokenHash(ctx context.Context, tokenHash string) (Convite, error) {
	const query = `
        SELECT id, tenant_id, usuario_id, token_hash, expiracao, aceito_em, criado_em
        FROM convites
        WHERE token_hash = $1
    `
	var c Convite
	err := q.pool.QueryRow(ctx, query, tokenHash).
		Scan(&c.ID, &c.TenantID, &c.UsuarioID, &c.TokenHash, &c.Expiracao, &c.AceitoEm, &c.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return Convite{}, ErrNotFound
	}
	return c, err
}

// MarkConviteAceito grava o momento do aceite.
func (q *Queries) MarkConviteAceito(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE convites
        SET aceito_em = now()
        WHERE id = $1 AND aceito_em IS NULL
    `
	tag, err := q.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUsuario(row pgx.Row) (Usuario, error) {
	var (
		u    Usuario
		role string
	)
	err := row.Scan(&u.ID, &u.TenantID, &u.Nome, &u.Email, &u.SenhaHash, &role, &u.Ativo, &u.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return Usuario{}, ErrNotFound
	}
	if err != nil {
		return Usuario{}, err
	}
	u.Role = authz.Role(role)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
