package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/auth"
	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/identity"
)

type contextKey string

const (
	ContextKeySubject   contextKey = "subject"
	ContextKeyAudience  contextKey = "audience"
	ContextKeyRoles     contextKey = "roles"
	ContextKeyPrincipal contextKey = "principal"
)

// Auth valida JWT de acesso e injeta claims no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			if len(claims.Audience) == 0 {
				writeError(w, http.StatusUnauthorized, "AUTH", "audience inválida")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyAudience, claims.Audience[0])
			ctx = context.WithValue(ctx, ContextKeyRoles, claims.Roles)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Principal resolve o sujeito autenticado para um Principal do perfil e o
// injeta no contexto. Toda rota privada passa por aqui; nenhum handler
// consulta identidade ambiente.
func Principal(resolver *identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := uuid.Parse(GetSubject(r.Context()))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "subject inválido")
				return
			}

			principal, err := resolver.Resolve(r.Context(), subject)
			if err != nil {
				switch {
				case errors.Is(err, identity.ErrProfileMissing),
					errors.Is(err, identity.ErrAccountDisabled):
					writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso negado")
				default:
					writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				}
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera subject do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetAudience recupera audience do contexto.
func GetAudience(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyAudience).(string)
	return val
}

// GetRoles recupera roles do contexto.
func GetRoles(ctx context.Context) []string {
	val, _ := ctx.Value(ContextKeyRoles).([]string)
	return val
}

// GetPrincipal recupera o principal resolvido do contexto.
func GetPrincipal(ctx context.Context) (authz.Principal, bool) {
	val, ok := ctx.Value(ContextKeyPrincipal).(authz.Principal)
	return val, ok
}

// SetPrincipal injeta um principal no contexto (uso em testes de handler).
func SetPrincipal(ctx context.Context, p authz.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
