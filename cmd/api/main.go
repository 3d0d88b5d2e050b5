// Package main is the entrypoint for the Larder recipe API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/cache"
	"github.com/larder/larder/internal/config"
	"github.com/larder/larder/internal/handler"
	"github.com/larder/larder/internal/metrics"
	"github.com/larder/larder/internal/middleware"
	"github.com/larder/larder/internal/repository"
	"github.com/larder/larder/internal/server"
	"github.com/larder/larder/internal/service"
	"github.com/larder/larder/migrations"
)

func main() {
	// Cancelled on SIGINT/SIGTERM, which starts graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", cfg.RedactedDatabaseURL()),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		applied, err := repo.Migrate(ctx, migrations.FS)
		if err != nil {
			logger.Error("failed to apply migrations", "error", err)
			repo.Close()
			os.Exit(1)
		}
		logger.Info("migrations applied", "versions", applied)
	}

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL, cfg.RecipeCacheTTL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", cfg.RedactedRedisURL()),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	// Initialize metrics
	recorder, metricsEndpoint := initMetrics(cfg)

	// Initialize services
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	recipeService := service.NewRecipeService(repo, cacheClient, cfg.PageSize, recorder, logger)
	accountService := service.NewAccountService(repo, tokens, cacheClient, recorder, logger)

	fallback, err := middleware.NewLocalLimiter(cfg.RateLimitLocalKeys)
	if err != nil {
		logger.Error("failed to create local rate limiter", "error", err)
		os.Exit(1)
	}

	deps := routerDeps{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		metrics:  metricsEndpoint,
		health:   handler.NewHealthHandler(repo, cacheClient),
		recipes:  handler.NewRecipeHandler(recipeService, logger),
		accounts: handler.NewAuthHandler(accountService, logger),
		verifier: tokens,
		revoked:  cacheClient,
		limiter:  cacheClient,
		fallback: fallback,
	}

	// Create and run server
	srv := server.New(setupRouter(deps), server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Closed in reverse order: Redis first, then Postgres
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"metrics_backend", cfg.MetricsBackend,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "larder")
	slog.SetDefault(logger)

	return logger
}

// initMetrics returns the configured recorder and the /metrics handler, which
// is nil when metrics are disabled.
func initMetrics(cfg *config.Config) (metrics.Recorder, http.Handler) {
	switch cfg.MetricsBackend {
	case config.MetricsPrometheus:
		prom := metrics.NewPrometheus()
		return prom, prom.Handler()
	case config.MetricsMemory:
		mem := metrics.NewInMemory()
		return mem, http.HandlerFunc(handler.NewMetricsHandler(mem).Metrics)
	default:
		return metrics.NewNoop(), nil
	}
}

type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder metrics.Recorder
	metrics  http.Handler
	health   *handler.HealthHandler
	recipes  *handler.RecipeHandler
	accounts *handler.AuthHandler
	verifier middleware.TokenVerifier
	revoked  middleware.RevocationChecker
	limiter  middleware.RateLimiter
	fallback *middleware.LocalLimiter
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	cfg := d.cfg
	h := handler.New()
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Metrics(d.recorder))
	r.Use(middleware.Recoverer(d.logger, d.recorder))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health endpoints (no auth required)
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	if d.metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.metrics)
	}

	authCfg := middleware.AuthConfig{
		Logger:      d.logger,
		Verifier:    d.verifier,
		Revocations: d.revoked,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        d.logger,
		Limiter:       d.limiter,
		Fallback:      d.fallback,
		Metrics:       d.recorder,
		UserEnabled:   cfg.RateLimitAPIEnabled,
		UserPerMinute: cfg.RateLimitAPIPerMinute,
		UserBurst:     cfg.RateLimitAPIBurst,
		IPEnabled:     cfg.RateLimitAuthEnabled,
		IPRPS:         cfg.RateLimitAuthRPS,
		IPBurst:       cfg.RateLimitAuthBurst,
	}

	// Account routes, limited per client IP
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))

		r.With(middleware.RequireJSON).Post("/register", d.accounts.Register)
		r.With(middleware.RequireJSON).Post("/login", d.accounts.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Post("/logout", d.accounts.Logout)
			r.Get("/protected", d.accounts.Protected)
		})
	})

	// Recipe routes (require authentication)
	r.Route("/api/recipes", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitUser(rateLimitCfg))

		r.Get("/", d.recipes.List)
		r.With(middleware.RequireJSON).Post("/", d.recipes.Create)
		r.Get("/{id}", d.recipes.Get)
		r.With(middleware.RequireJSON).Put("/{id}", d.recipes.Update)
		r.Delete("/{id}", d.recipes.Delete)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// sanitizeError strips connection strings and password parameters from
// driver errors before they reach the log.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, secret, "[redacted]")
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
