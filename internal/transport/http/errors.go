package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/ticket-resale/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidID            = "invalid_id"
	codeMetadataTooLarge     = "metadata_too_large"
	codeUnauthorized         = "unauthorized"
	codeInvalidOwner         = "invalid_owner"
	codeTicketNotFound       = "ticket_not_found"
	codeTicketAlreadyExists  = "ticket_already_exists"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps domain errors from the ticket service to responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
	case errors.Is(err, domain.ErrTicketAlreadyExists):
		writeError(w, http.StatusConflict, codeTicketAlreadyExists, err.Error())
	case errors.Is(err, domain.ErrInvalidOwner):
		writeError(w, http.StatusForbidden, codeInvalidOwner, err.Error())
	case errors.Is(err, domain.ErrMetadataTooLarge):
		writeError(w, http.StatusBadRequest, codeMetadataTooLarge, err.Error())
	case errors.Is(err, domain.ErrInvalidIdentity):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
