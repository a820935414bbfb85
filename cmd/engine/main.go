package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"agrosynchro-engine/internal/alerting"
	"agrosynchro-engine/internal/analysis"
	"agrosynchro-engine/internal/api"
	"agrosynchro-engine/internal/api/handlers"
	"agrosynchro-engine/internal/blob"
	"agrosynchro-engine/internal/config"
	"agrosynchro-engine/internal/queue"
	"agrosynchro-engine/internal/services/consumer"
	"agrosynchro-engine/internal/services/imagepoller"
	"agrosynchro-engine/internal/services/messaging"
	"agrosynchro-engine/internal/storage"
	"agrosynchro-engine/internal/worker"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Msg("Starting AgroSynchro processing engine")

	ctx := context.Background()

	store, err := storage.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	cache, err := storage.NewCache(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without cache")
		cache = nil
	}

	events, err := messaging.NewService(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("NATS unavailable, event broadcasting disabled")
		events = nil
	}

	notifier := alerting.NewMailer(cfg)
	classifier := analysis.NewFieldClassifier()

	workers := make(map[string]worker.Runner)

	// Each loop checks its own configuration: a missing endpoint disables
	// that loop only, it never takes the other one down.
	queueClient, err := queue.NewClient(ctx, cfg)
	switch {
	case errors.Is(err, queue.ErrNotConfigured):
		log.Error().Msg("SQS_QUEUE_URL not configured, sensor consumer disabled")
	case err != nil:
		log.Error().Err(err).Msg("SQS client failed, sensor consumer disabled")
	default:
		workers["sensor-consumer"] = consumer.NewService(cfg, queueClient, store, notifier, events, cache)
	}

	if cfg.RawBucket == "" || cfg.ProcessedBucket == "" {
		log.Error().Msg("Image buckets not configured, image poller disabled")
	} else {
		blobClient, err := blob.NewClient(ctx, cfg)
		if err != nil {
			log.Error().Err(err).Msg("S3 client failed, image poller disabled")
		} else {
			workers["image-poller"] = imagepoller.NewService(cfg, blobClient, store, classifier, events, cache)
		}
	}

	server := api.NewEngineServer(cfg, api.EngineDeps{
		Health: handlers.NewHealthHandler(cfg, "processing-engine", store, workers),
		Worker: handlers.NewWorkerHandler(workers),
	})

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	for name, runner := range workers {
		if err := runner.Start(); err != nil {
			log.Error().Err(err).Str("worker", name).Msg("Failed to start worker")
		}
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	for name, runner := range workers {
		if err := runner.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("worker", name).Msg("Worker forced to stop")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server forced to shutdown")
	}

	if err := events.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down event publisher")
	}
	if err := cache.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close cache")
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Processing engine shutdown complete")
}
