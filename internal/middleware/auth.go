package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/punchcard/punchcard/internal/auth"
	"github.com/punchcard/punchcard/internal/model"
)

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (*model.AuthContext, time.Time, error)
}

// AuthCache caches verified tokens by hash.
type AuthCache interface {
	GetAuthContext(ctx context.Context, tokenHash string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, tokenHash string, auth *model.AuthContext, expiresAt time.Time) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens TokenVerifier
	Cache  AuthCache // Optional
}

// Auth returns a middleware that authenticates vendor requests.
// It extracts the bearer token from the Authorization header,
// verifies it, and injects the auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeAuthError(w)
				return
			}

			tokenHash := auth.TokenHash(token)
			if cfg.Cache != nil {
				if authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), tokenHash); authCtx != nil {
					serveAuthenticated(cfg.Logger, next, w, r, authCtx, true)
					return
				}
			}

			authCtx, expiresAt, err := cfg.Tokens.Verify(token)
			if err != nil {
				logAuthFailure(cfg.Logger, r, "invalid_token")
				writeAuthError(w)
				return
			}

			if cfg.Cache != nil {
				if err := cfg.Cache.SetAuthContext(r.Context(), tokenHash, authCtx, expiresAt); err != nil {
					cfg.Logger.Warn("auth cache write failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
			}

			serveAuthenticated(cfg.Logger, next, w, r, authCtx, false)
		})
	}
}

func serveAuthenticated(logger *slog.Logger, next http.Handler, w http.ResponseWriter, r *http.Request, authCtx *model.AuthContext, cacheHit bool) {
	logger.Debug("authentication successful",
		slog.String("vendor_id", authCtx.VendorID),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Bool("cache_hit", cacheHit),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	annotateVendor(r.Context(), authCtx.VendorID)

	ctx := auth.ContextWithAuth(r.Context(), authCtx)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="punchcard"`)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing access token")
}
