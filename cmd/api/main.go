// Package main is the entrypoint for the punchcard API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/punchcard/punchcard/internal/analytics"
	"github.com/punchcard/punchcard/internal/auth"
	"github.com/punchcard/punchcard/internal/cache"
	"github.com/punchcard/punchcard/internal/config"
	"github.com/punchcard/punchcard/internal/handler"
	"github.com/punchcard/punchcard/internal/ledger"
	"github.com/punchcard/punchcard/internal/loyalty"
	"github.com/punchcard/punchcard/internal/metrics"
	"github.com/punchcard/punchcard/internal/middleware"
	"github.com/punchcard/punchcard/internal/repository"
	"github.com/punchcard/punchcard/internal/server"
	"github.com/punchcard/punchcard/internal/service"
	"github.com/punchcard/punchcard/internal/store"
	"github.com/punchcard/punchcard/internal/store/memory"
	mongostore "github.com/punchcard/punchcard/internal/store/mongo"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Authentication, before any connection is opened
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}
	hasher := auth.NewPasswordHasher(auth.DefaultPasswordParams)

	// Initialize store
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL, cfg.MongoURI)),
		)
		os.Exit(1)
	}

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		st.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	vendorStore := cache.NewVendorStore(st, cacheClient, logger)

	visitLedger := ledger.New(st,
		ledger.WithClockSkew(cfg.ClockSkewTolerance),
		ledger.WithStoreTimeout(cfg.StoreTimeout),
		ledger.WithLogger(logger),
		ledger.WithMetrics(metricsRecorder),
	)
	directory := struct {
		store.VendorStore
		store.CustomerStore
	}{vendorStore, st}
	reports := analytics.NewService(visitLedger, directory, analytics.Config{
		DefaultLocation: cfg.Location(),
		StoreTimeout:    cfg.StoreTimeout,
		Logger:          logger,
		Metrics:         metricsRecorder,
	})
	cards := loyalty.NewService(st, visitLedger, cfg.StoreTimeout, logger, metricsRecorder)
	vendors := service.NewVendorService(vendorStore, hasher, tokens, cfg.DefaultTimezone, logger, metricsRecorder,
		service.WithStoreTimeout(cfg.StoreTimeout),
	)
	customers := service.NewCustomerService(st, logger, metricsRecorder,
		service.WithStoreTimeout(cfg.StoreTimeout),
	)

	// Setup router
	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = cfg.IsDevelopment()
	securityCfg.MaxRequestBodySize = cfg.MaxRequestBodySize

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r := handler.NewRouter(handler.RouterConfig{
		Logger:    logger,
		Root:      handler.New(),
		Health:    handler.NewHealthHandler(cfg.StoreDriver, st, cacheClient, logger),
		Metrics:   handler.NewMetricsHandler(metricsRecorder),
		Accounts:  handler.NewAccountHandler(vendors, logger),
		Customers: handler.NewCustomerHandler(customers, logger),
		Visits:    handler.NewVisitHandler(visitLedger, customers, logger),
		Analytics: handler.NewAnalyticsHandler(reports, logger),
		Loyalty:   handler.NewLoyaltyHandler(cards, logger),
		Auth: middleware.AuthConfig{
			Logger: logger,
			Tokens: tokens,
			Cache:  cacheClient,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:         logger,
			Limiter:        cacheClient,
			Metrics:        metricsRecorder,
			Enabled:        cfg.RateLimitEnabled,
			PunchPerMinute: cfg.RateLimitPunchPerMinute,
			PunchBurst:     cfg.RateLimitPunchBurst,
			LoginRPS:       cfg.RateLimitLoginRPS,
			LoginBurst:     cfg.RateLimitLoginBurst,
		},
		Security:   securityCfg,
		CORS:       corsCfg,
		PrintStack: cfg.IsDevelopment(),
	})

	// Create and run server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Closed in reverse order: cache first, store last.
	srv.OnShutdown(cfg.StoreDriver, func(ctx context.Context) error {
		st.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"store", cfg.StoreDriver,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore connects the configured storage engine and applies its schema.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		applied, err := repo.Migrate(ctx)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("connected to database",
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
			slog.Any("migrations_applied", applied),
		)
		return repo, nil

	case config.DriverMongo:
		ms, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := ms.Migrate(ctx); err != nil {
			ms.Close()
			return nil, fmt.Errorf("create indexes: %w", err)
		}
		logger.Info("connected to MongoDB",
			slog.String("mongo_uri", redactURL(cfg.MongoURI)),
			slog.String("database", cfg.MongoDatabase),
		)
		return ms, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
