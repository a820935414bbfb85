package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"agrosynchro-engine/internal/models"
)

// Sender enqueues a sensor payload for the processing engine.
type Sender interface {
	Send(ctx context.Context, body []byte) error
}

// ReadingLister serves reading history queries.
type ReadingLister interface {
	Readings(ctx context.Context, userID uint, limit int) ([]models.SensorReading, error)
}

type SensorHandler struct {
	queue Sender
	store ReadingLister
}

func NewSensorHandler(queue Sender, store ReadingLister) *SensorHandler {
	return &SensorHandler{queue: queue, store: store}
}

// Ingest accepts a device's sensor payload and queues it. The gateway only
// validates shape; normalization and persistence belong to the consumer.
func (h *SensorHandler) Ingest(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	if payload["user_id"] == nil && payload["userid"] == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue not configured"})
		return
	}
	if err := h.queue.Send(c.Request.Context(), body); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue sensor payload")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to queue sensor data"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Sensor data queued"})
}

// History returns the authenticated user's readings, newest first.
func (h *SensorHandler) History(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	readings, err := h.store.Readings(c.Request.Context(), user.UserID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sensor data"})
		return
	}
	c.JSON(http.StatusOK, readings)
}
