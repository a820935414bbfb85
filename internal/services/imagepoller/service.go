// Package imagepoller discovers raw drone images in blob storage, analyzes
// them, stores a processed copy plus metadata, and cleans up the original.
// The duplicate guard makes discovery idempotent across polls and workers.
package imagepoller

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"agrosynchro-engine/internal/analysis"
	"agrosynchro-engine/internal/config"
	"agrosynchro-engine/internal/models"
	"agrosynchro-engine/internal/services/messaging"
	"agrosynchro-engine/internal/storage"
	"agrosynchro-engine/internal/worker"
)

// Blob is the slice of the S3 client the poller needs.
type Blob interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, bucket, key string) error
}

// Store is the persistence surface for drone image records.
type Store interface {
	HasDroneImage(ctx context.Context, rawKey string) (bool, error)
	InsertDroneImage(ctx context.Context, img *models.DroneImage) error
}

// Events receives best-effort processed-image notifications.
type Events interface {
	PublishImageProcessed(event messaging.ImageProcessedEvent)
}

type Service struct {
	cfg        *config.Config
	blob       Blob
	store      Store
	classifier analysis.Classifier
	events     Events
	cache      *storage.Cache

	running int32
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	now func() time.Time
}

func NewService(cfg *config.Config, b Blob, store Store, classifier analysis.Classifier, events Events, cache *storage.Cache) *Service {
	return &Service{
		cfg:        cfg,
		blob:       b,
		store:      store,
		classifier: classifier,
		events:     events,
		cache:      cache,
		now:        time.Now,
	}
}

func (s *Service) Start() error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return fmt.Errorf("image poller already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})

	go s.run()

	log.Info().Dur("interval", s.cfg.ImagePollInterval).Msg("Image poller started")
	return nil
}

func (s *Service) Running() bool {
	return atomic.LoadInt32(&s.running) == 1
}

func (s *Service) Shutdown(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return nil
	}

	s.cancel()

	select {
	case <-s.done:
		log.Info().Msg("Image poller stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("image poller shutdown timed out: %w", ctx.Err())
	}
}

func (s *Service) run() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Image poller panic recovered")
			atomic.StoreInt32(&s.running, 0)
		}
	}()

	for {
		s.poll(s.ctx)

		if !worker.Sleep(s.ctx, s.cfg.ImagePollInterval) {
			return
		}
	}
}

// poll runs one discovery pass. Item failures are logged and retried on the
// next pass; they never abort the remaining items.
func (s *Service) poll(ctx context.Context) {
	keys, err := s.blob.List(ctx, s.cfg.RawBucket, s.cfg.RawImagePrefix)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("bucket", s.cfg.RawBucket).Msg("Failed to list raw images")
		}
		return
	}
	log.Debug().Int("count", len(keys)).Msg("Listed raw image objects")

	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		if s.isProcessed(ctx, key) {
			continue
		}

		log.Info().Str("key", key).Msg("Processing new drone image")
		if err := s.processImage(ctx, key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Failed to process drone image")
		}
	}
}

// isProcessed is the duplicate guard: cached key set first, then the database
// record, then - when the database is unreachable - the presence of a
// processed counterpart in blob storage. Favoring "already processed" on the
// fallback avoids reprocessing loops while the database is down.
func (s *Service) isProcessed(ctx context.Context, rawKey string) bool {
	if s.cache.IsProcessed(ctx, rawKey) {
		return true
	}

	processed, err := s.store.HasDroneImage(ctx, rawKey)
	if err == nil {
		return processed
	}
	log.Warn().Err(err).Str("key", rawKey).Msg("Duplicate check against database failed, falling back to blob storage")

	exists, headErr := s.blob.Exists(ctx, s.cfg.ProcessedBucket, processedKey(rawKey))
	if headErr != nil {
		log.Warn().Err(headErr).Str("key", rawKey).Msg("Processed counterpart check failed, treating as unprocessed")
		return false
	}
	return exists
}

func (s *Service) processImage(ctx context.Context, rawKey string) error {
	data, err := s.blob.Get(ctx, s.cfg.RawBucket, rawKey)
	if err != nil {
		return err
	}

	status, confidence := s.classifier.Classify(data)
	log.Info().Str("key", rawKey).Str("field_status", status).Float64("confidence", confidence).Msg("Field analysis complete")

	procKey := processedKey(rawKey)
	if err := s.blob.Put(ctx, s.cfg.ProcessedBucket, procKey, data, "image/jpeg"); err != nil {
		return err
	}

	analyzedAt := s.now()
	record := &models.DroneImage{
		DroneID:      DeviceIDFromKey(rawKey),
		RawKey:       rawKey,
		ProcessedKey: procKey,
		FieldStatus:  status,
		Confidence:   confidence,
		AnalyzedAt:   &analyzedAt,
	}
	if err := s.store.InsertDroneImage(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Another worker claimed this key between the guard check and the
			// insert; leave the raw object to that worker.
			log.Info().Str("key", rawKey).Msg("Image already claimed by another worker")
			s.cache.MarkProcessed(ctx, rawKey)
			return nil
		}
		return err
	}

	s.cache.MarkProcessed(ctx, rawKey)
	if s.events != nil {
		s.events.PublishImageProcessed(messaging.ImageProcessedEvent{
			DroneID:      record.DroneID,
			RawKey:       rawKey,
			ProcessedKey: procKey,
			FieldStatus:  status,
			Confidence:   confidence,
			Timestamp:    analyzedAt,
		})
	}

	// A leaked raw object is acceptable; a lost processed record is not.
	if err := s.blob.Delete(ctx, s.cfg.RawBucket, rawKey); err != nil {
		log.Warn().Err(err).Str("key", rawKey).Msg("Could not delete raw image")
	}

	log.Info().Str("key", rawKey).Str("drone_id", record.DroneID).Msg("Drone image processed")
	return nil
}

func processedKey(rawKey string) string {
	return "processed/" + rawKey
}

// DeviceIDFromKey extracts the device identifier from an image key following
// the drone-images/YYYY/MM/DD/<device>_<uuid>.<ext> convention. Malformed
// keys degrade to "unknown".
func DeviceIDFromKey(key string) string {
	base := path.Base(key)
	name := strings.TrimSuffix(base, path.Ext(base))
	id := strings.SplitN(name, "_", 2)[0]
	if id == "" || id == "." || id == "/" {
		return "unknown"
	}
	return id
}
