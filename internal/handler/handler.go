// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/punchcard/punchcard/internal/handler/dto"
	"github.com/punchcard/punchcard/internal/ledger"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handler serves the endpoints that have no dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports the service name and version.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "punchcard API",
		"version": Version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already sent; a failed encode cannot be reported.
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON reads the request body into dst. An empty body is accepted
// when optional is set. On failure the response is written and false returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	return false
}

// writeLedgerError answers the error kinds shared by every domain package.
// It reports false when err is not one of them.
func writeLedgerError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, ledger.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "NOT_AUTHORIZED", "Customer does not belong to this vendor")
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Customer not found")
	case errors.Is(err, ledger.ErrInvalidTimestamp):
		writeError(w, http.StatusBadRequest, "INVALID_TIMESTAMP", err.Error())
	case errors.Is(err, ledger.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", err.Error())
	case errors.Is(err, ledger.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used for a different customer")
	case errors.Is(err, ledger.ErrInvalidIdempotencyKey):
		writeError(w, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", err.Error())
	case ledger.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is temporarily unavailable")
	default:
		return false
	}
	return true
}

// writeInternalError logs err and answers 500 without exposing it.
func writeInternalError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("internal_error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// parseTimestamp parses an RFC 3339 timestamp. Empty input yields the zero time.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// parseRange reads the required since and until query parameters.
func parseRange(r *http.Request) (since, until time.Time, ok bool) {
	query := r.URL.Query()
	rawSince, rawUntil := query.Get("since"), query.Get("until")
	if rawSince == "" || rawUntil == "" {
		return time.Time{}, time.Time{}, false
	}

	since, err := time.Parse(time.RFC3339Nano, rawSince)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	until, err = time.Parse(time.RFC3339Nano, rawUntil)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return since, until, true
}
