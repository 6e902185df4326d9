package authz

import (
	"strings"

	"github.com/google/uuid"
)

// Role identifica o perfil de acesso de um usuário dentro do tenant.
type Role string

const (
	RoleUsuario    Role = "USUARIO"
	RoleTecnico    Role = "TECNICO"
	RoleGestor     Role = "GESTOR"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

var validRoles = map[Role]struct{}{
	RoleUsuario:    {},
	RoleTecnico:    {},
	RoleGestor:     {},
	RoleSuperAdmin: {},
}

// NormalizeRole padroniza o papel em letras maiúsculas.
func NormalizeRole(role string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(role)))
}

// IsValidRole indica se o papel é reconhecido.
func IsValidRole(role Role) bool {
	_, ok := validRoles[role]
	return ok
}

// Principal é a identidade resolvida do chamador: usuário, tenant e papel.
// Chamadas anônimas usam o Principal devolvido por Anonymous; nenhuma
// operação do núcleo consulta identidade ambiente fora deste valor.
type Principal struct {
	UserID    uuid.UUID
	TenantID  uuid.UUID
	Role      Role
	Anonymous bool
}

// Anonymous devolve o principal de chamadas sem sessão.
func Anonymous() Principal {
	return Principal{Anonymous: true}
}

// IsSuperAdmin indica papel com console administrativo global.
func (p Principal) IsSuperAdmin() bool {
	return !p.Anonymous && p.Role == RoleSuperAdmin
}
