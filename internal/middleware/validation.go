package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/punchcard/punchcard/internal/model"
)

// ValidateIDParams returns middleware that rejects requests whose named route
// parameters are not canonical ULIDs. Such ids can never name a stored
// record, so the request is answered with 404 before any store access.
func ValidateIDParams(params ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range params {
				value := chi.URLParam(r, name)
				if value == "" {
					continue
				}
				if !model.IsULID(value) {
					writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
