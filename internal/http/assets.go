package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/asset"
	httpmiddleware "github.com/urbanbyte/chamados/internal/http/middleware"
)

// CreateAsset cadastra um ativo com token de QR recém-gerado.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}

	var payload struct {
		Nome      string `json:"nome"`
		Categoria string `json:"categoria"`
		LocalID   string `json:"local_id"`
		SetorID   string `json:"setor_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	localID, err := uuid.Parse(payload.LocalID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "local_id inválido", nil)
		return
	}
	setorID, err := uuid.Parse(payload.SetorID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "setor_id inválido", nil)
		return
	}

	created, err := h.assets.Create(r.Context(), p, asset.CreateAssetInput{
		Nome:      payload.Nome,
		Categoria: payload.Categoria,
		LocalID:   localID,
		SetorID:   setorID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"asset": created})
}

// ListAssets devolve os ativos do tenant.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}

	items, err := h.assets.List(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"assets": items})
}

// AssetLabel devolve os dados da etiqueta imprimível do ativo.
func (h *Handler) AssetLabel(w http.ResponseWriter, r *http.Request) {
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

	label, err := h.assets.BuildLabel(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"label": label})
}
