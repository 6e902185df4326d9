package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/urbanbyte/chamados/internal/asset"
	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
	"github.com/urbanbyte/chamados/internal/service"
	"github.com/urbanbyte/chamados/internal/ticket"
	"github.com/urbanbyte/chamados/internal/util"
)

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// writeDomainError traduz erros dos serviços para o envelope HTTP.
// ErrCrossTenant sai com o mesmo corpo de ErrForbidden: quem está fora do
// tenant não descobre nem que o recurso existe.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden), errors.Is(err, authz.ErrCrossTenant):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "acesso negado", nil)
	case errors.Is(err, ticket.ErrInvalidTransition):
		WriteError(w, http.StatusUnprocessableEntity, "INVALID_TRANSITION", "mudança de status não permitida", nil)
	case errors.Is(err, ticket.ErrConflict), errors.Is(err, asset.ErrTokenTaken):
		WriteError(w, http.StatusConflict, "CONFLICT", "conflito de atualização concorrente", nil)
	case errors.Is(err, ticket.ErrAssetNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "ativo não encontrado para o token informado", nil)
	case errors.Is(err, ticket.ErrNotFound),
		errors.Is(err, asset.ErrNotFound),
		errors.Is(err, repo.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "recurso não encontrado", nil)
	case errors.Is(err, ticket.ErrValidation),
		errors.Is(err, asset.ErrValidation),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, util.ErrInvalid):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, repo.ErrDuplicated):
		WriteError(w, http.StatusConflict, "CONFLICT", "registro duplicado", nil)
	case errors.Is(err, service.ErrInviteInvalid):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
