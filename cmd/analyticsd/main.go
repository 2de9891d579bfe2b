// Package main is the entrypoint for the shortlink analytics consumer.
//
// analyticsd reads click events from the click stream with at-least-once
// delivery and persists a hit record for every delivery it acknowledges.
// It also serves health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/shortlink/shortlink/internal/cache"
	"github.com/shortlink/shortlink/internal/clickstream"
	"github.com/shortlink/shortlink/internal/config"
	"github.com/shortlink/shortlink/internal/handler"
	"github.com/shortlink/shortlink/internal/logging"
	"github.com/shortlink/shortlink/internal/metrics"
	"github.com/shortlink/shortlink/internal/repository"
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

	workers := cfg.ConsumerWorkers
	if workers < 1 {
		workers = 1
	}

	consumers := make([]*clickstream.Consumer, 0, workers)
	for i := 0; i < workers; i++ {
		consumer := clickstream.NewConsumer(
			cacheClient.Client(),
			repo,
			logger,
			clickstream.NewConsumerID(),
			metricsRecorder,
		)
		consumer.SetBlockTimeout(cfg.ConsumerBlock)
		consumer.SetMaxDeliveries(cfg.ConsumerMaxDeliveries)
		consumers = append(consumers, consumer)
	}

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)

	r := chi.NewRouter()
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/", h.Hello)
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Consumers run detached from the HTTP lifecycle and drain during
	// graceful shutdown, completing any in-flight message first.
	for i, consumer := range consumers {
		consumer := consumer
		go func(n int) {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer exited", "worker", n, "error", err)
			}
		}(i)
		srv.OnShutdown(fmt.Sprintf("consumer-%d", i), consumer.Shutdown)
	}

	logger.Info("starting analytics consumer",
		"port", cfg.AppPort,
		"workers", workers,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
