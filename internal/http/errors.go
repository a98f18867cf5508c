package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wirus-app/wirus-auth/internal/auth"
	"github.com/wirus-app/wirus-auth/internal/observability/logger"
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

// WriteError writes a JSON error envelope. The request id is taken from the
// response header where the middleware already placed it.
func WriteError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		RequestID:        rid,
	})
}

// WriteJSON writes a standard JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodes the request body tolerantly: unknown fields pass, the
// body is capped at 1MB. Returns false after writing the error response.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if ct != "" && !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return false
	}
	return true
}

// WriteServiceError maps the error taxonomy of the auth service onto HTTP
// statuses and surfaces the literal failure reason. NotFound and Conflict
// answer as 400, which is what integrated platforms expect.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrBadRequest),
		errors.Is(err, auth.ErrNotFound),
		errors.Is(err, auth.ErrConflict),
		errors.Is(err, auth.ErrMalformed):
		WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrForbidden),
		errors.Is(err, auth.ErrIdentityMismatch),
		errors.Is(err, auth.ErrSubjectMismatch):
		WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		logger.From(r.Context()).Error("unhandled service error", logger.Layer("http"), logger.Err(err))
		WriteError(w, http.StatusInternalServerError, "server_error", "An unexpected error occurred")
	}
}
