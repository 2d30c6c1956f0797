package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/punchcard/punchcard/internal/auth"
)

// VendorParam is the route parameter naming the vendor a request acts on.
const VendorParam = "vendorId"

// RequireVendor returns middleware that admits a request only when the
// {vendorId} path segment names the authenticated vendor.
// Must be applied after Auth middleware.
func RequireVendor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := auth.AuthFromContext(r.Context())
		if authCtx == nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		if chi.URLParam(r, VendorParam) != authCtx.VendorID {
			writeError(w, http.StatusForbidden, "NOT_AUTHORIZED", "Token does not grant access to this vendor")
			return
		}

		next.ServeHTTP(w, r)
	})
}
