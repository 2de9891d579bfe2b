// Package main is the entrypoint for the shortlink redirect server.
//
// redirectd serves the hot resolution path: cache-aside reads against
// Redis, fallback lookups against the link API, and detached click
// event publication to the click stream.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shortlink/shortlink/internal/cache"
	"github.com/shortlink/shortlink/internal/clickstream"
	"github.com/shortlink/shortlink/internal/config"
	"github.com/shortlink/shortlink/internal/handler"
	"github.com/shortlink/shortlink/internal/logging"
	"github.com/shortlink/shortlink/internal/lookup"
	"github.com/shortlink/shortlink/internal/metrics"
	"github.com/shortlink/shortlink/internal/middleware"
	"github.com/shortlink/shortlink/internal/resolver"
	"github.com/shortlink/shortlink/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg)

	// Initialize cache and broker (same Redis instance)
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

	lookupClient := lookup.NewClient(cfg.LinkAPIURL, cfg.LookupTimeout)
	publisher := clickstream.NewPublisher(cacheClient.Client(), logger, metricsRecorder)

	res := resolver.New(cacheClient, lookupClient, publisher, logger, metricsRecorder)
	res.SetCacheTimeout(cfg.CacheTimeout)
	res.SetLookupTimeout(cfg.LookupTimeout)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(nil, cacheClient)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)
	redirectHandler := handler.NewRedirectHandler(res, logger)

	r := setupRouter(cfg, h, healthHandler, metricsHandler, redirectHandler, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting redirect server",
		"port", cfg.AppPort,
		"link_api_url", cfg.LinkAPIURL,
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
	redirectHandler *handler.RedirectHandler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// A 302 to the destination is cacheable per user, unlike the API's
	// no-store default.
	secCfg := middleware.DefaultSecurityConfig()
	secCfg.IsDevelopment = cfg.IsDevelopment()
	secCfg.CacheControl = "private, max-age=0"

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(secCfg))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Get("/", h.Hello)

	r.Get("/{shortCode}", redirectHandler.Redirect)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
