package repo

import (
	"time"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/authz"
)

// Usuario representa o perfil vinculado a um tenant. A credencial em si é
// responsabilidade do provedor de identidade; aqui vive o vínculo papel/tenant.
type Usuario struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Nome      string
	Email     string
	SenhaHash *string
	Role      authz.Role
	Ativo     bool
	CriadoEm  time.Time
}

// Setor representa unidade organizacional responsável por ativos e chamados.
type Setor struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Nome     string
	CriadoEm time.Time
}

// Local representa um lugar físico do município.
type Local struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Nome     string
	CriadoEm time.Time
}

// TokenRefresh modela tabela de refresh tokens.
type TokenRefresh struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	Audience  string
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
	Revogado  bool
}

// InsertRefreshTokenParams agrupa campos de criação de refresh token.
type InsertRefreshTokenParams struct {
	Subject   uuid.UUID
	Audience  string
	TokenHash string
	Expiracao time.Time
}

// Convite representa um convite pendente de ativação de perfil.
type Convite struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UsuarioID uuid.UUID
	TokenHash string
	Expiracao time.Time
	AceitoEm  *time.Time
	CriadoEm  time.Time
}
