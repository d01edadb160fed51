// Package events publishes session lifecycle events to Kafka so downstream
// consumers (billing, notifications) can react without polling the database.
// Publishing is fire-and-forget: a broker outage never fails a research run.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event types published on the session lifecycle topic.
const (
	EventSessionStarted    = "session.started"
	EventSessionCompleted  = "session.completed"
	EventSessionFailed     = "session.failed"
	EventDocumentProcessed = "document.processed"
)

// SessionEvent is the payload of a lifecycle event. SessionID is also the
// Kafka message key so one session's events stay ordered on a partition.
type SessionEvent struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id,omitempty"`
	TraceID    string    `json:"trace_id,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	Result     string    `json:"result,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends session lifecycle events to a Kafka topic.
type Publisher interface {
	Publish(ctx context.Context, event SessionEvent)
	Close() error
}

// Config holds publisher configuration.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for session lifecycle events.
	Topic string
	// BatchTimeout is the maximum time to wait for a batch to fill.
	BatchTimeout time.Duration
}

// KafkaPublisher publishes lifecycle events via a kafka-go writer.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to the configured topic.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger) *KafkaPublisher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends one lifecycle event. Failures are logged and swallowed; the
// pipeline's own state lives in Postgres and must not depend on the broker.
func (p *KafkaPublisher) Publish(ctx context.Context, event SessionEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", event.Type).Msg("failed to marshal lifecycle event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).
			Str("event_type", event.Type).
			Str("session_id", event.SessionID).
			Msg("failed to publish lifecycle event")
		return
	}

	p.logger.Debug().
		Str("event_type", event.Type).
		Str("session_id", event.SessionID).
		Msg("published lifecycle event")
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when event publishing is disabled.
type NopPublisher struct{}

// Publish implements Publisher and does nothing.
func (NopPublisher) Publish(context.Context, SessionEvent) {}

// Close implements Publisher and does nothing.
func (NopPublisher) Close() error { return nil }
