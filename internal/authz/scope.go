package authz

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CheckTenant exige correspondência exata entre o tenant do principal e o
// tenant da entidade. Vale para toda leitura e escrita do núcleo; nenhuma
// operação contorna este guarda. Mutações de SUPER_ADMIN também passam aqui.
func CheckTenant(p Principal, entityTenant uuid.UUID) error {
	if p.Anonymous {
		return ErrCrossTenant
	}
	if p.TenantID == entityTenant {
		return nil
	}

	// O log distingue cross-tenant de forbidden; a resposta HTTP não.
	log.Warn().
		Str("event", "cross_tenant").
		Str("user_id", p.UserID.String()).
		Str("principal_tenant", p.TenantID.String()).
		Str("entity_tenant", entityTenant.String()).
		Msg("acesso fora do tenant negado")

	return ErrCrossTenant
}

// CheckTenantRead é igual a CheckTenant, exceto pelo escopo AllTenants do
// SUPER_ADMIN, válido apenas em visões administrativas de leitura.
func CheckTenantRead(p Principal, entityTenant uuid.UUID) error {
	if p.IsSuperAdmin() {
		return nil
	}
	return CheckTenant(p, entityTenant)
}
