package middleware

import (
	"context"
	"net/http"

	"github.com/urbanbyte/chamados/internal/tenant"
)

const ContextKeyTenant contextKey = "tenant"

// TenantHost resolve o tenant pelo Host da requisição e o injeta no
// contexto. Rotas públicas anônimas dependem desse escopo para nunca
// vazarem dados entre prefeituras.
func TenantHost(svc *tenant.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, err := svc.Resolve(r.Context(), r.Host)
			if err != nil {
				writeError(w, http.StatusNotFound, "TENANT_NOT_FOUND", "domínio não reconhecido")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyTenant, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenant recupera o tenant resolvido do contexto.
func GetTenant(ctx context.Context) (*tenant.Tenant, bool) {
	val, ok := ctx.Value(ContextKeyTenant).(*tenant.Tenant)
	return val, ok
}

// SetTenant injeta um tenant no contexto (uso em testes de handler).
func SetTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, ContextKeyTenant, t)
}
