package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/urbanbyte/chamados/internal/authz"
	httpmiddleware "github.com/urbanbyte/chamados/internal/http/middleware"
	"github.com/urbanbyte/chamados/internal/tenant"
)

// ListTenants devolve todos os tenants cadastrados (console SUPER_ADMIN).
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}
	if err := authz.Require(p, authz.ActionSuperConsole); err != nil {
		writeDomainError(w, err)
		return
	}

	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar tenants", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

// GetTenant devolve um tenant por id (console SUPER_ADMIN).
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}
	if err := authz.Require(p, authz.ActionSuperConsole); err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	found, err := h.tenants.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "tenant não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar tenant", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tenant": found})
}

// CreateTenant registra um novo tenant (console SUPER_ADMIN).
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}
	if err := authz.Require(p, authz.ActionSuperConsole); err != nil {
		writeDomainError(w, err)
		return
	}

	var payload struct {
		Slug     string         `json:"slug"`
		Nome     string         `json:"display_name"`
		Domain   string         `json:"domain"`
		Settings map[string]any `json:"settings"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Slug) == "" || strings.TrimSpace(payload.Nome) == "" || strings.TrimSpace(payload.Domain) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "slug, display_name e domain são obrigatórios", nil)
		return
	}

	created, err := h.tenants.Create(r.Context(), tenant.CreateTenantInput{
		Slug:        payload.Slug,
		DisplayName: payload.Nome,
		Domain:      payload.Domain,
		Settings:    payload.Settings,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			WriteError(w, http.StatusConflict, "CONFLICT", "slug ou domínio já cadastrados", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível criar tenant", nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"tenant": created})
}
