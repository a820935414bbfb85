// Package consumer runs the sensor-data pipeline: long-poll the queue, decode
// each message, persist the reading, evaluate thresholds, alert, acknowledge.
// A message is deleted only after its reading has been persisted.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"agrosynchro-engine/internal/alerting"
	"agrosynchro-engine/internal/config"
	"agrosynchro-engine/internal/models"
	"agrosynchro-engine/internal/queue"
	"agrosynchro-engine/internal/services/messaging"
	"agrosynchro-engine/internal/storage"
	"agrosynchro-engine/internal/thresholds"
	"agrosynchro-engine/internal/worker"
)

// Queue is the slice of the SQS client the consumer needs.
type Queue interface {
	Receive(ctx context.Context) ([]queue.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Store is the persistence surface for readings and threshold lookups.
type Store interface {
	InsertReadings(ctx context.Context, userID uint, ts time.Time, values map[string]float64) error
	UserParameters(ctx context.Context, userID uint) (*storage.UserThresholds, error)
}

// Events receives best-effort alert notifications for dashboards.
type Events interface {
	PublishAlert(event messaging.AlertEvent)
}

type Service struct {
	cfg      *config.Config
	queue    Queue
	store    Store
	notifier alerting.Notifier
	events   Events
	cache    *storage.Cache

	running int32
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// injectable clock for tests
	now func() time.Time
}

func NewService(cfg *config.Config, q Queue, store Store, notifier alerting.Notifier, events Events, cache *storage.Cache) *Service {
	return &Service{
		cfg:      cfg,
		queue:    q,
		store:    store,
		notifier: notifier,
		events:   events,
		cache:    cache,
		now:      time.Now,
	}
}

func (s *Service) Start() error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return fmt.Errorf("sensor consumer already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})

	go s.run()

	log.Info().Msg("Sensor consumer started")
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
		log.Info().Msg("Sensor consumer stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sensor consumer shutdown timed out: %w", ctx.Err())
	}
}

// run is the poll loop. It never exits on processing errors; transient queue
// failures back off briefly and the loop continues until cancellation.
func (s *Service) run() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Sensor consumer panic recovered")
			atomic.StoreInt32(&s.running, 0)
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		messages, err := s.queue.Receive(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Queue receive failed, backing off")
			worker.Sleep(s.ctx, s.cfg.PollBackoff)
			continue
		}

		if len(messages) == 0 {
			continue
		}
		log.Info().Int("count", len(messages)).Msg("Received sensor messages")

		for _, msg := range messages {
			if s.ctx.Err() != nil {
				return
			}
			s.processMessage(s.ctx, msg)
		}
	}
}

// processMessage walks one message through persist → evaluate → acknowledge.
// Any failure before the final delete leaves the message for redelivery.
func (s *Service) processMessage(ctx context.Context, msg queue.Message) {
	reading, err := parsePayload(msg.Body, s.now)
	if err != nil {
		// Left unacknowledged; the queue's retry policy decides its fate.
		log.Warn().Err(err).Msg("Skipping malformed sensor message")
		return
	}

	if err := s.store.InsertReadings(ctx, reading.UserID, reading.Timestamp, reading.Values); err != nil {
		log.Error().Err(err).Uint("user_id", reading.UserID).Msg("Failed to persist reading, leaving message for redelivery")
		return
	}
	s.cache.SetLatestReadings(ctx, reading.UserID, reading.Values)

	s.evaluate(ctx, reading)

	if err := s.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		// Reading rows may be duplicated on redelivery; accepted trade-off.
		log.Error().Err(err).Uint("user_id", reading.UserID).Msg("Failed to acknowledge message")
		return
	}

	log.Info().Uint("user_id", reading.UserID).Int("measurements", len(reading.Values)).Msg("Sensor message processed")
}

// evaluate checks each canonical measurement against the user's thresholds.
// A user without configured parameters is valid; evaluation is skipped.
func (s *Service) evaluate(ctx context.Context, reading *Reading) {
	params, err := s.store.UserParameters(ctx, reading.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Debug().Uint("user_id", reading.UserID).Msg("No parameters configured, skipping evaluation")
		} else {
			log.Error().Err(err).Uint("user_id", reading.UserID).Msg("Parameter lookup failed, skipping evaluation")
		}
		return
	}

	for _, measure := range models.Measures {
		value, ok := reading.Values[measure]
		if !ok {
			continue
		}

		min, max := params.Bounds(measure)
		if !thresholds.OutOfRange(&value, min, max) {
			continue
		}

		expected := thresholds.ExpectedRange(min, max)
		s.notifier.SendAlert(ctx, params.Mail, reading.UserID, measure, value, expected)
		if s.events != nil {
			s.events.PublishAlert(messaging.AlertEvent{
				UserID:        reading.UserID,
				Measure:       measure,
				Value:         value,
				ExpectedRange: expected,
				Recipient:     params.Mail,
				Timestamp:     s.now(),
			})
		}
	}
}
