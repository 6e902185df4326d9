package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/authz"
	httpmiddleware "github.com/urbanbyte/chamados/internal/http/middleware"
	"github.com/urbanbyte/chamados/internal/repo"
)

type catalogItem struct {
	ID   uuid.UUID `json:"id"`
	Nome string    `json:"nome"`
}

// ListSectors devolve os setores do tenant.
func (h *Handler) ListSectors(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}
	if err := authz.Require(p, authz.ActionReadCatalog); err != nil {
		writeDomainError(w, err)
		return
	}

	setores, err := h.queries.ListSetores(r.Context(), p.TenantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]catalogItem, 0, len(setores))
	for _, s := range setores {
		items = append(items, catalogItem{ID: s.ID, Nome: s.Nome})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sectors": items})
}

// CreateSector cadastra um setor para o tenant.
func (h *Handler) CreateSector(w http.ResponseWriter, r *http.Request) {
	h.createCatalogEntry(w, r, "sector", func(ctx context.Context, p authz.Principal, nome string) (catalogItem, error) {
		s, err := h.queries.CreateSetor(ctx, p.TenantID, nome)
		if err != nil {
			return catalogItem{}, err
		}
		return catalogItem{ID: s.ID, Nome: s.Nome}, nil
	})
}

// ListLocations devolve os locais do tenant.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}
	if err := authz.Require(p, authz.ActionReadCatalog); err != nil {
		writeDomainError(w, err)
		return
	}

	locais, err := h.queries.ListLocais(r.Context(), p.TenantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]catalogItem, 0, len(locais))
	for _, l := range locais {
		items = append(items, catalogItem{ID: l.ID, Nome: l.Nome})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"locations": items})
}

// CreateLocation cadastra um local para o tenant.
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	h.createCatalogEntry(w, r, "location", func(ctx context.Context, p authz.Principal, nome string) (catalogItem, error) {
		l, err := h.queries.CreateLocal(ctx, p.TenantID, nome)
		if err != nil {
			return catalogItem{}, err
		}
		return catalogItem{ID: l.ID, Nome: l.Nome}, nil
	})
}

func (h *Handler) createCatalogEntry(w http.ResponseWriter, r *http.Request, key string, create func(context.Context, authz.Principal, string) (catalogItem, error)) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}
	if err := authz.Require(p, authz.ActionManageCatalog); err != nil {
		writeDomainError(w, err)
		return
	}

	var payload struct {
		Nome string `json:"nome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	payload.Nome = strings.TrimSpace(payload.Nome)
	if payload.Nome == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "nome obrigatório", nil)
		return
	}

	item, err := create(r.Context(), p, payload.Nome)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicated) {
			WriteError(w, http.StatusConflict, "CONFLICT", "nome já cadastrado", nil)
			return
		}
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{key: item})
}
