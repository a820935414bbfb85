package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"agrosynchro-engine/internal/models"
	"agrosynchro-engine/internal/storage"
)

// ParameterStore covers threshold reads and writes.
type ParameterStore interface {
	UserParameters(ctx context.Context, userID uint) (*storage.UserThresholds, error)
	UpsertParameters(ctx context.Context, params *models.Parameters) error
}

type ParameterHandler struct {
	store ParameterStore
}

func NewParameterHandler(store ParameterStore) *ParameterHandler {
	return &ParameterHandler{store: store}
}

type parametersRequest struct {
	MinTemperature  *float64 `json:"min_temperature" binding:"required"`
	MaxTemperature  *float64 `json:"max_temperature" binding:"required"`
	MinHumidity     *float64 `json:"min_humidity" binding:"required"`
	MaxHumidity     *float64 `json:"max_humidity" binding:"required"`
	MinSoilMoisture *float64 `json:"min_soil_moisture" binding:"required"`
	MaxSoilMoisture *float64 `json:"max_soil_moisture" binding:"required"`
}

// Get returns the authenticated user's thresholds.
func (h *ParameterHandler) Get(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	params, err := h.store.UserParameters(c.Request.Context(), user.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No parameters configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch parameters"})
		return
	}
	c.JSON(http.StatusOK, params)
}

// Upsert writes the authenticated user's thresholds, one row per user.
func (h *ParameterHandler) Upsert(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req parametersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All six bounds are required"})
		return
	}

	params := &models.Parameters{
		UserID:          user.UserID,
		MinTemperature:  req.MinTemperature,
		MaxTemperature:  req.MaxTemperature,
		MinHumidity:     req.MinHumidity,
		MaxHumidity:     req.MaxHumidity,
		MinSoilMoisture: req.MinSoilMoisture,
		MaxSoilMoisture: req.MaxSoilMoisture,
	}

	if err := h.store.UpsertParameters(c.Request.Context(), params); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save parameters"})
		return
	}

	c.JSON(http.StatusOK, params)
}
