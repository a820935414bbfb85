package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"agrosynchro-engine/internal/config"
)

const (
	latestReadingKey  = "latest_readings:%d"
	processedImageSet = "processed_images"

	latestReadingTTL = 24 * time.Hour
)

// Cache is an optional Redis layer in front of the database: latest reading
// per user and a processed-image key set used as a fast duplicate pre-check.
// A nil *Cache is valid and disables every operation.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis, or returns nil when no address is configured.
func NewCache(ctx context.Context, cfg *config.Config) (*Cache, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("Redis connection established")
	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// SetLatestReadings refreshes the per-user hash of most recent values.
// Best effort; failures are logged and ignored.
func (c *Cache) SetLatestReadings(ctx context.Context, userID uint, values map[string]float64) {
	if c == nil || len(values) == 0 {
		return
	}

	key := fmt.Sprintf(latestReadingKey, userID)
	fields := make(map[string]string, len(values))
	for measure, value := range values {
		fields[measure] = strconv.FormatFloat(value, 'f', -1, 64)
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, latestReadingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to cache latest readings")
	}
}

// MarkProcessed remembers that a raw image key has been handled.
func (c *Cache) MarkProcessed(ctx context.Context, rawKey string) {
	if c == nil {
		return
	}
	if err := c.client.SAdd(ctx, processedImageSet, rawKey).Err(); err != nil {
		log.Warn().Err(err).Str("key", rawKey).Msg("Failed to cache processed image key")
	}
}

// IsProcessed checks the processed-image set. Errors degrade to "unknown"
// so the caller falls through to the database.
func (c *Cache) IsProcessed(ctx context.Context, rawKey string) bool {
	if c == nil {
		return false
	}
	ok, err := c.client.SIsMember(ctx, processedImageSet, rawKey).Result()
	if err != nil {
		return false
	}
	return ok
}
