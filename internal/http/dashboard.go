package http

import (
	"net/http"

	httpmiddleware "github.com/urbanbyte/chamados/internal/http/middleware"
)

// DashboardMetrics devolve o resumo agregado de chamados do tenant.
func (h *Handler) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	p, ok := httpmiddleware.GetPrincipal(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão ausente", nil)
		return
	}

	summary, err := h.metrics.Overview(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
