package server

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/aidanlsb/tabula/internal/export"
)

// Error codes returned in JSON error bodies. They are stable.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorBody{Error: message, Details: details, Code: code})
}

// respondError maps a pipeline or gate error onto a status and body. Internal
// errors are logged with their detail and answered with a generic message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *export.ParameterError
	switch {
	case errors.As(err, &pe):
		writeError(w, http.StatusBadRequest, CodeValidation, pe.Error(), pe.Details)
	case errors.Is(err, export.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, CodeForbidden, err.Error(), nil)
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
	}
}
