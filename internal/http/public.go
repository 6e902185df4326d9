package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/urbanbyte/chamados/internal/http/middleware"
	"github.com/urbanbyte/chamados/internal/tenant"
	"github.com/urbanbyte/chamados/internal/ticket"
)

// PublicCreateTicket abre um chamado sem sessão a partir do token de QR.
// Tenant e local derivam do ativo resolvido; a resposta carrega apenas o
// protocolo legível.
func (h *Handler) PublicCreateTicket(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		QRToken    string `json:"qr_token"`
		Descricao  string `json:"descricao"`
		Prioridade string `json:"prioridade"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	created, err := h.tickets.CreateAnonymous(r.Context(), ticket.CreateAnonInput{
		QRToken:    payload.QRToken,
		Descricao:  payload.Descricao,
		Prioridade: payload.Prioridade,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"readable_id": created.ReadableID})
}

// PublicTrackTicket consulta um chamado pelo protocolo legível. O tenant vem
// do Host da requisição; protocolos de outros municípios são invisíveis aqui.
func (h *Handler) PublicTrackTicket(w http.ResponseWriter, r *http.Request) {
	t, ok := httpmiddleware.GetTenant(r.Context())
	if !ok {
		WriteError(w, http.StatusNotFound, "TENANT_NOT_FOUND", "domínio não reconhecido", nil)
		return
	}

	readableID, err := strconv.ParseInt(chi.URLParam(r, "readableID"), 10, 64)
	if err != nil || readableID <= 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "protocolo inválido", nil)
		return
	}

	view, err := h.tickets.TrackByProtocol(r.Context(), t.ID, readableID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ticket": view})
}

// TenantConfig devolve informações públicas do município, identificando o host.
func (h *Handler) TenantConfig(w http.ResponseWriter, r *http.Request) {
	tenantInfo, err := h.tenants.Resolve(r.Context(), r.Host)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "TENANT_NOT_FOUND", "tenant não configurado para este domínio", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar tenant", nil)
		return
	}

	WriteJSON(w, http.StatusOK, tenantInfo.PublicView())
}
