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

	"agrosynchro-engine/internal/api"
	"agrosynchro-engine/internal/api/handlers"
	"agrosynchro-engine/internal/blob"
	"agrosynchro-engine/internal/config"
	"agrosynchro-engine/internal/queue"
	"agrosynchro-engine/internal/storage"
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
		Msg("Starting AgroSynchro IoT gateway")

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET not configured")
	}

	ctx := context.Background()

	store, err := storage.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Missing queue or bucket config degrades the matching endpoints to 503
	// instead of blocking gateway startup.
	var queueClient *queue.Client
	qc, err := queue.NewClient(ctx, cfg)
	switch {
	case errors.Is(err, queue.ErrNotConfigured):
		log.Error().Msg("SQS_QUEUE_URL not configured, sensor ingestion disabled")
	case err != nil:
		log.Error().Err(err).Msg("SQS client failed, sensor ingestion disabled")
	default:
		queueClient = qc
	}

	var blobClient *blob.Client
	if cfg.RawBucket == "" {
		log.Error().Msg("RAW_IMAGES_BUCKET not configured, image upload disabled")
	} else if bc, err := blob.NewClient(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("S3 client failed, image upload disabled")
	} else {
		blobClient = bc
	}

	var sender handlers.Sender
	if queueClient != nil {
		sender = queueClient
	}
	var uploader handlers.Uploader
	if blobClient != nil {
		uploader = blobClient
	}

	server := api.NewGatewayServer(cfg, api.GatewayDeps{
		Health:     handlers.NewHealthHandler(cfg, "iot-gateway", store, nil),
		Sensors:    handlers.NewSensorHandler(sender, store),
		Images:     handlers.NewImageHandler(cfg, uploader, store),
		Users:      handlers.NewUserHandler(store),
		Parameters: handlers.NewParameterHandler(store),
		Auth:       store,
	})

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server forced to shutdown")
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Gateway shutdown complete")
}
