package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/punchcard/punchcard/internal/middleware"
)

// RouterConfig holds the handlers and middleware settings of the HTTP API.
type RouterConfig struct {
	Logger *slog.Logger

	Root      *Handler
	Health    *HealthHandler
	Metrics   *MetricsHandler
	Accounts  *AccountHandler
	Customers *CustomerHandler
	Visits    *VisitHandler
	Analytics *AnalyticsHandler
	Loyalty   *LoyaltyHandler

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	Security  middleware.SecurityConfig
	CORS      middleware.CORSConfig

	// PrintStack logs stack traces of recovered panics.
	PrintStack bool
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.PrintStack))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBodySize(cfg.Security.MaxRequestBodySize))

	// Probes and metrics (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", cfg.Metrics.Metrics)
	r.Get("/", cfg.Root.Hello)

	// Vendor accounts
	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimitLogin(cfg.RateLimit)).Post("/register", cfg.Accounts.Register)
		r.With(middleware.RateLimitLogin(cfg.RateLimit)).Post("/login", cfg.Accounts.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth))
			r.Get("/me", cfg.Accounts.Me)
			r.Put("/me", cfg.Accounts.UpdateMe)
		})
	})

	// Everything a vendor owns lives under its id; the token must name the same vendor.
	r.Route("/vendors/{"+middleware.VendorParam+"}", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth))
		r.Use(middleware.RequireVendor)
		r.Use(middleware.ValidateIDParams(middleware.VendorParam))

		r.With(middleware.RateLimitPunch(cfg.RateLimit)).Post("/scans", cfg.Visits.Scan)
		r.Get("/cards", cfg.Loyalty.List)

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", cfg.Customers.Create)
			r.Get("/", cfg.Customers.List)

			r.Route("/{"+customerParam+"}", func(r chi.Router) {
				r.Use(middleware.ValidateIDParams(customerParam))

				r.Get("/", cfg.Customers.Get)
				r.Put("/", cfg.Customers.Update)
				r.Delete("/", cfg.Customers.Delete)

				r.With(middleware.RateLimitPunch(cfg.RateLimit)).Post("/punch", cfg.Visits.Punch)
				r.Get("/visits", cfg.Visits.History)
				r.Get("/visits/count", cfg.Visits.Count)

				r.Post("/card", cfg.Loyalty.Create)
				r.Get("/card", cfg.Loyalty.Get)
				r.Post("/card/redeem", cfg.Loyalty.Redeem)
			})
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/weekly", cfg.Analytics.Weekly)
			r.Get("/repeats", cfg.Analytics.Repeats)
		})
	})

	// 404 and 405 handlers
	r.NotFound(cfg.Root.NotFound)
	r.MethodNotAllowed(cfg.Root.MethodNotAllowed)

	return r
}
