package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agrosynchro-engine/internal/config"
	"agrosynchro-engine/internal/worker"
)

// Pinger is the health surface of the database store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	cfg     *config.Config
	service string
	store   Pinger
	workers map[string]worker.Runner
}

func NewHealthHandler(cfg *config.Config, service string, store Pinger, workers map[string]worker.Runner) *HealthHandler {
	return &HealthHandler{
		cfg:     cfg,
		service: service,
		store:   store,
		workers: workers,
	}
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   h.service,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Health reports dependency status: database connectivity, external endpoint
// configuration, and worker loop state.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"

	database := gin.H{"connected": false}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			status = "degraded"
			database["error"] = err.Error()
		} else {
			database["connected"] = true
		}
	}

	workers := gin.H{}
	for name, runner := range h.workers {
		workers[name] = runner.Running()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"service":   h.service,
		"timestamp": time.Now().Format(time.RFC3339),
		"database":  database,
		"sqs":       gin.H{"configured": h.cfg.QueueURL != ""},
		"s3":        gin.H{"configured": h.cfg.RawBucket != "" && h.cfg.ProcessedBucket != ""},
		"workers":   workers,
	})
}
