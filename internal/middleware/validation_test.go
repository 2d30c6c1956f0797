package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/punchcard/punchcard/internal/model"
)

func TestValidateIDParams(t *testing.T) {
	valid := model.NewID()

	tests := []struct {
		name       string
		customerID string
		wantStatus int
	}{
		{"ulid accepted", valid, http.StatusOK},
		{"short id rejected", "abc", http.StatusNotFound},
		{"sql-ish id rejected", "1%27%20OR%201%3D1", http.StatusNotFound},
		{"overlong id rejected", valid + "0", http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/customers/{customerId}", func(r chi.Router) {
				r.Use(ValidateIDParams("customerId"))
				r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusOK)
				})
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/"+tt.customerID+"/", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
