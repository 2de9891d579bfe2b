// Package main is the entrypoint for the shortlink link API server.
//
// linkd owns link mutations, write-through cache population, the
// evict-before-ack invalidation protocol, and the internal lookup
// endpoint the redirect service falls back to on cache miss.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shortlink/shortlink/internal/cache"
	"github.com/shortlink/shortlink/internal/config"
	"github.com/shortlink/shortlink/internal/handler"
	"github.com/shortlink/shortlink/internal/logging"
	"github.com/shortlink/shortlink/internal/metrics"
	"github.com/shortlink/shortlink/internal/middleware"
	"github.com/shortlink/shortlink/internal/repository"
	"github.com/shortlink/shortlink/internal/server"
	"github.com/shortlink/shortlink/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", logging.SanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", logging.RedactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", logging.SanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", logging.RedactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	metricsRecorder := metrics.NewInMemory()
	linkService := service.NewLinkService(repo, cacheClient, logger, metricsRecorder)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)
	linkHandler := handler.NewLinkHandler(linkService, logger)
	lookupHandler := handler.NewLookupHandler(repo, logger)

	r := setupRouter(cfg, h, healthHandler, metricsHandler, linkHandler, lookupHandler, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting link API server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	cfg *config.Config,
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	linkHandler *handler.LinkHandler,
	lookupHandler *handler.LookupHandler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	secCfg := middleware.DefaultSecurityConfig()
	secCfg.IsDevelopment = cfg.IsDevelopment()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(secCfg))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Get("/", h.Hello)

	// Link management
	r.Route("/api/links", func(r chi.Router) {
		r.Get("/", linkHandler.List)
		r.Post("/", linkHandler.Create)
		r.Get("/{id}", linkHandler.Get)
		r.Put("/{id}", linkHandler.Update)
		r.Delete("/{id}", linkHandler.Delete)
	})

	// Internal lookup API, consumed by the redirect service. Exposed
	// inside the trust boundary only.
	r.Get("/internal/links/by-code/{code}", lookupHandler.ByCode)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
