package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"agrosynchro-engine/internal/config"
	"agrosynchro-engine/internal/models"
)

// maxImageSize bounds a single upload body.
const maxImageSize = 25 << 20

// Uploader stores raw image bytes for the poll loop to discover.
type Uploader interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// ImageLister serves processed drone image records.
type ImageLister interface {
	DroneImages(ctx context.Context, limit int) ([]models.DroneImage, error)
}

type ImageHandler struct {
	cfg   *config.Config
	blob  Uploader
	store ImageLister
}

func NewImageHandler(cfg *config.Config, blob Uploader, store ImageLister) *ImageHandler {
	return &ImageHandler{cfg: cfg, blob: blob, store: store}
}

// Upload stores one drone image under the date-partitioned key convention
// drone-images/YYYY/MM/DD/<device>_<uuid>.<ext>.
func (h *ImageHandler) Upload(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}

	ext := strings.TrimPrefix(c.DefaultQuery("ext", "jpg"), ".")

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImageSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image body"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty image body"})
		return
	}
	if len(data) > maxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image too large"})
		return
	}

	if h.blob == nil || h.cfg.RawBucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image storage not configured"})
		return
	}

	now := time.Now()
	key := path.Join(
		strings.TrimSuffix(h.cfg.RawImagePrefix, "/"),
		fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()),
		fmt.Sprintf("%s_%s.%s", deviceID, uuid.NewString(), ext),
	)

	contentType := c.ContentType()
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "image/jpeg"
	}

	if err := h.blob.Put(c.Request.Context(), h.cfg.RawBucket, key, data, contentType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload drone image")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to store image"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Image uploaded",
		"key":       key,
		"device_id": deviceID,
		"size":      len(data),
	})
}

// List returns processed drone image records, newest first.
func (h *ImageHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	images, err := h.store.DroneImages(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch drone images"})
		return
	}
	c.JSON(http.StatusOK, images)
}
