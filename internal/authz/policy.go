package authz

import "errors"

var (
	// ErrForbidden indica ausência de permissão.
	ErrForbidden = errors.New("acesso negado")
	// ErrCrossTenant indica tentativa de acesso fora do tenant do principal.
	// Externamente é indistinguível de ErrForbidden; o log interno difere.
	ErrCrossTenant = errors.New("acesso fora do tenant")
)

// Action identifica uma operação sujeita à tabela de capacidades.
type Action string

const (
	ActionCreateTicket       Action = "ticket:create"
	ActionCreateTicketAnon   Action = "ticket:create_anon"
	ActionListOwnTickets     Action = "ticket:list_own"
	ActionListTenantTickets  Action = "ticket:list_tenant"
	ActionChangeTicketStatus Action = "ticket:change_status"
	ActionReadAssets         Action = "asset:read"
	ActionCreateAssets       Action = "asset:create"
	ActionReadCatalog        Action = "catalog:read"
	ActionManageCatalog      Action = "catalog:manage"
	ActionManageUsers        Action = "user:manage"
	ActionViewDashboard      Action = "dashboard:view"
	ActionSuperConsole       Action = "admin:console"
	ActionLookupProtocol     Action = "ticket:lookup_protocol"
)

// capabilities é a tabela estática (papel, ação) -> permitido. Ausência de
// entrada é negação: toda decisão falha fechada.
var capabilities = map[Role]map[Action]bool{
	RoleUsuario: {
		ActionCreateTicket:   true,
		ActionListOwnTickets: true,
		ActionReadCatalog:    true,
		ActionLookupProtocol: true,
	},
	RoleTecnico: {
		ActionCreateTicket:       true,
		ActionListOwnTickets:     true,
		ActionListTenantTickets:  true,
		ActionChangeTicketStatus: true,
		ActionReadAssets:         true,
		ActionCreateAssets:       true,
		ActionReadCatalog:        true,
		ActionLookupProtocol:     true,
	},
	RoleGestor: {
		ActionCreateTicket:       true,
		ActionListOwnTickets:     true,
		ActionListTenantTickets:  true,
		ActionChangeTicketStatus: true,
		ActionReadAssets:         true,
		ActionCreateAssets:       true,
		ActionReadCatalog:        true,
		ActionManageCatalog:      true,
		ActionManageUsers:        true,
		ActionViewDashboard:      true,
		ActionLookupProtocol:     true,
	},
	RoleSuperAdmin: {
		ActionCreateTicket:       true,
		ActionListOwnTickets:     true,
		ActionListTenantTickets:  true,
		ActionChangeTicketStatus: true,
		ActionReadAssets:         true,
		ActionCreateAssets:       true,
		ActionReadCatalog:        true,
		ActionManageCatalog:      true,
		ActionManageUsers:        true,
		ActionViewDashboard:      true,
		ActionSuperConsole:       true,
		ActionLookupProtocol:     true,
	},
}

// anonymousCapabilities cobre o caminho público: criação via QR token e
// consulta de protocolo individual. Nada além disso.
var anonymousCapabilities = map[Action]bool{
	ActionCreateTicketAnon: true,
	ActionLookupProtocol:   true,
}

// Allowed consulta a tabela de capacidades. Função pura e total: toda
// combinação (principal, ação) devolve um booleano, nunca erro.
func Allowed(p Principal, action Action) bool {
	if p.Anonymous {
		return anonymousCapabilities[action]
	}
	return capabilities[p.Role][action]
}

// Require devolve ErrForbidden quando a tabela nega a ação.
func Require(p Principal, action Action) error {
	if !Allowed(p, action) {
		return ErrForbidden
	}
	return nil
}
