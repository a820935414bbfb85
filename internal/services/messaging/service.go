// Package messaging mirrors processing events onto NATS subjects so
// dashboards can react without polling the database. Publishing is best
// effort; a nil *Service disables it entirely.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"agrosynchro-engine/internal/config"
)

const (
	SubjectSensorAlerts   = "alerts.sensor"
	SubjectImageProcessed = "images.processed"
)

// AlertEvent describes one out-of-range measurement.
type AlertEvent struct {
	UserID        uint      `json:"user_id"`
	Measure       string    `json:"measure"`
	Value         float64   `json:"value"`
	ExpectedRange string    `json:"expected_range"`
	Recipient     string    `json:"recipient,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// ImageProcessedEvent describes one analyzed drone image.
type ImageProcessedEvent struct {
	DroneID      string    `json:"drone_id"`
	RawKey       string    `json:"raw_key"`
	ProcessedKey string    `json:"processed_key"`
	FieldStatus  string    `json:"field_status"`
	Confidence   float64   `json:"confidence"`
	Timestamp    time.Time `json:"timestamp"`
}

type Service struct {
	conn *nats.Conn
	cfg  *config.Config
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name("agrosynchro-engine"),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

func (s *Service) publish(subject string, data interface{}) {
	if s == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("Failed to marshal event")
		return
	}
	if err := s.conn.Publish(subject, payload); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("Failed to publish event")
	}
}

func (s *Service) PublishAlert(event AlertEvent) {
	s.publish(SubjectSensorAlerts, event)
}

func (s *Service) PublishImageProcessed(event ImageProcessedEvent) {
	s.publish(SubjectImageProcessed, event)
}

func (s *Service) IsConnected() bool {
	return s != nil && s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s == nil || s.conn == nil {
		return nil
	}
	// Try graceful drain, fallback to immediate close
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
	}
	return nil
}
