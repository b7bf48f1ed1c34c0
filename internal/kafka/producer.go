package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// LifecycleEvent announces a signal's on-chain progress for downstream
// consumers (dashboards, alerting). Best-effort: publish failures are
// logged and dropped, never propagated into the request path.
type LifecycleEvent struct {
	EventType  string `json:"event_type"`
	SignalID   string `json:"signal_id"`
	ProviderID string `json:"provider_id"`
	Hash       string `json:"hash,omitempty"`
	Timestamp  string `json:"timestamp"`
}

const (
	EventSignalCommitted = "SIGNAL_COMMITTED"
	EventSignalRevealed  = "SIGNAL_REVEALED"
)

// Producer publishes signal lifecycle events
type Producer struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewProducer creates a Kafka producer for the lifecycle topic
func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		writer: writer,
		log:    log.With().Str("component", "lifecycle_producer").Logger(),
	}
}

// SignalCommitted publishes a commit announcement
func (p *Producer) SignalCommitted(ctx context.Context, signalID, providerID, hash string) {
	p.publish(ctx, LifecycleEvent{
		EventType:  EventSignalCommitted,
		SignalID:   signalID,
		ProviderID: providerID,
		Hash:       hash,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// SignalRevealed publishes a reveal announcement
func (p *Producer) SignalRevealed(ctx context.Context, signalID, providerID string) {
	p.publish(ctx, LifecycleEvent{
		EventType:  EventSignalRevealed,
		SignalID:   signalID,
		ProviderID: providerID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *Producer) publish(ctx context.Context, event LifecycleEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("event_type", event.EventType).Msg("failed to marshal lifecycle event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.SignalID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		// Dropped on purpose: the ledger already holds the truth and the
		// commit/reveal has succeeded by the time we announce it.
		p.log.Warn().Err(err).
			Str("event_type", event.EventType).
			Str("signal_id", event.SignalID).
			Msg("dropping lifecycle event after publish failure")
	}
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
