package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/urbanbyte/chamados/internal/http/middleware"
	"github.com/urbanbyte/chamados/internal/repo"
)

type userPayload struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Nome     string    `json:"nome"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Ativo    bool      `json:"ativo"`
	CriadoEm time.Time `json:"criado_em"`
}

func userView(u repo.Usuario) userPayload {
	return userPayload{
		ID:       u.ID,
		TenantID: u.TenantID,
		Nome:     u.Nome,
		Email:    u.Email,
		Role:     string(u.Role),
		Ativo:    u.Ativo,
		CriadoEm: u.CriadoEm,
	}
}

// ListUsers devolve os perfis do tenant.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}

	users, err := h.userService.List(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]userPayload, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": views})
}

// InviteUser cria o perfil inativo e devolve o token de convite.
func (h *Handler) InviteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}

	var payload struct {
		Nome  string `json:"nome"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	result, err := h.userService.Invite(r.Context(), p, payload.Nome, payload.Email, payload.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"user":         userView(result.Usuario),
		"invite_token": result.Token,
		"expira_em":    result.Expira,
	})
}

// UpdateUserAccess altera papel e/ou ativação de um perfil do tenant.
func (h *Handler) UpdateUserAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Role  *string `json:"role"`
		Ativo *bool   `json:"ativo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if payload.Role == nil && payload.Ativo == nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "nada a alterar", nil)
		return
	}

	updated, err := h.userService.UpdateAccess(r.Context(), p, id, payload.Role, payload.Ativo)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": userView(updated)})
}
