package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/urbanbyte/chamados/internal/http/middleware"
	"github.com/urbanbyte/chamados/internal/ticket"
)

// CreateTicket abre um chamado pelo caminho autenticado.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}

	var payload struct {
		Descricao  string  `json:"descricao"`
		Prioridade string  `json:"prioridade"`
		LocalID    *string `json:"local_id"`
		SetorID    *string `json:"setor_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	input := ticket.CreateInput{
		Descricao:  payload.Descricao,
		Prioridade: payload.Prioridade,
	}

	if payload.LocalID != nil {
		id, err := uuid.Parse(*payload.LocalID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "local_id inválido", nil)
			return
		}
		input.LocalID = &id
	}
	if payload.SetorID != nil {
		id, err := uuid.Parse(*payload.SetorID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "setor_id inválido", nil)
			return
		}
		input.SetorID = &id
	}

	created, err := h.tickets.Create(r.Context(), p, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"ticket": created})
}

// ListTickets devolve chamados do tenant; ?mine=true restringe aos próprios.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}

	q := r.URL.Query()
	mine := q.Get("mine") == "true"

	var statuses []string
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = ticket.NormalizeStatus(s)
			if !ticket.IsValidStatus(s) {
				WriteError(w, http.StatusBadRequest, "VALIDATION", "status inválido: "+s, nil)
				return
			}
			statuses = append(statuses, s)
		}
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, err := h.tickets.List(r.Context(), p, mine, statuses, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tickets": items})
}

// GetTicket devolve um chamado por id.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
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

	found, err := h.tickets.Get(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ticket": found})
}

// ChangeTicketStatus move o chamado na máquina de estados.
func (h *Handler) ChangeTicketStatus(w http.ResponseWriter, r *http.Request) {
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
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if strings.TrimSpace(payload.Status) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "status obrigatório", nil)
		return
	}

	updated, err := h.tickets.ChangeStatus(r.Context(), p, id, payload.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ticket": updated})
}
