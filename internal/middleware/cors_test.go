package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

const dashboard = "https://dashboard.punchcard.test"

func serveCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = origins
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/vendors/v1/customers", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantStatus int
		wantAllow  string
	}{
		{"empty policy", nil, dashboard, http.MethodGet, http.StatusOK, ""},
		{"exact match", []string{dashboard}, dashboard, http.MethodGet, http.StatusOK, dashboard},
		{"case insensitive", []string{"HTTPS://Dashboard.Punchcard.Test"}, dashboard, http.MethodGet, http.StatusOK, dashboard},
		{"unknown origin passes undecorated", []string{dashboard}, "https://till.example", http.MethodPost, http.StatusOK, ""},
		{"unknown origin preflight", []string{dashboard}, "https://till.example", http.MethodOptions, http.StatusForbidden, ""},
		{"allowed preflight", []string{dashboard}, dashboard, http.MethodOptions, http.StatusNoContent, dashboard},
		{"subdomain wildcard", []string{"*.punchcard.test"}, "https://till.punchcard.test", http.MethodGet, http.StatusOK, "https://till.punchcard.test"},
		{"wildcard skips apex", []string{"*.punchcard.test"}, "https://punchcard.test", http.MethodGet, http.StatusOK, ""},
		{"wildcard skips lookalike", []string{"*.punchcard.test"}, "https://evilpunchcard.test", http.MethodGet, http.StatusOK, ""},
		{"same origin", []string{dashboard}, "", http.MethodGet, http.StatusOK, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := serveCORS(tt.origins, tt.method, tt.origin)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	rec := serveCORS([]string{dashboard}, http.MethodOptions, dashboard)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), IdempotencyKeyHeader)
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_SimpleRequestExposesRateLimitHeaders(t *testing.T) {
	rec := serveCORS([]string{dashboard}, http.MethodPost, dashboard)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}
