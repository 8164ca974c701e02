package http

import (
	"encoding/json"
	"net/http"

	"github.com/cimillas/furniture-backoffice/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidQuery         = "invalid_query"
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

// writeDomainError maps a service error to its HTTP status. Only validation
// and not-found errors echo the wrapped message; everything else returns the
// sentinel message so infrastructure details stay in the logs.
func writeDomainError(w http.ResponseWriter, err error) {
	de, ok := domain.AsError(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	switch de.Kind {
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, de.Code, err.Error())
	case domain.KindValidation:
		writeError(w, http.StatusBadRequest, de.Code, err.Error())
	case domain.KindConflict:
		writeError(w, http.StatusConflict, de.Code, de.Msg)
	case domain.KindDependencyUnavailable:
		writeError(w, http.StatusServiceUnavailable, de.Code, de.Msg)
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
