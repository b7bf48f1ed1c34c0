package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/agentalpha/signal-exchange/internal/database"
	"github.com/agentalpha/signal-exchange/internal/models"
	"github.com/agentalpha/signal-exchange/internal/reputation"
)

// OutcomeRepository defines the interface for outcome persistence
type OutcomeRepository interface {
	CreateSignalOutcome(ctx context.Context, o *models.Outcome) error
}

// OutcomeEvent represents an oracle evaluation event from Kafka
type OutcomeEvent struct {
	EventType string           `json:"event_type"`
	Source    string           `json:"source"`
	Timestamp string           `json:"timestamp"`
	Data      OutcomeEventData `json:"data"`
}

// OutcomeEventData holds the oracle's price observations for one signal
type OutcomeEventData struct {
	SignalID   string  `json:"signal_id"`
	ProviderID string  `json:"provider_id"`
	Direction  string  `json:"direction"`
	Confidence uint8   `json:"confidence"`
	EntryPrice float64 `json:"entry_price"`
	FinalPrice float64 `json:"final_price"`

	// Optional precomputed return; when zero it is derived from the prices.
	ReturnPercent float64 `json:"return_percent,omitempty"`
	EvaluatedAt   string  `json:"evaluated_at,omitempty"`
}

// OutcomesConsumer handles consuming oracle outcome events from Kafka
type OutcomesConsumer struct {
	reader *kafka.Reader
	repo   OutcomeRepository
	log    zerolog.Logger
}

// NewOutcomesConsumer creates a new Kafka consumer for outcome events
func NewOutcomesConsumer(brokers []string, topic, groupID string, repo OutcomeRepository, log zerolog.Logger) *OutcomesConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-outcomes",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &OutcomesConsumer{
		reader: reader,
		repo:   repo,
		log:    log.With().Str("component", "outcomes_consumer").Logger(),
	}
}

// Start begins consuming messages from Kafka
func (c *OutcomesConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting outcomes consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("outcomes consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.log.Error().Err(err).Msg("error reading outcome message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("error processing outcome message")
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *OutcomesConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event OutcomeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal outcome event: %w", err)
	}

	if event.EventType != "SIGNAL_OUTCOME" {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring unknown event type")
		return nil
	}

	outcome, err := BuildOutcome(event.Data)
	if err != nil {
		return fmt.Errorf("invalid outcome for signal %s: %w", event.Data.SignalID, err)
	}

	if err := c.repo.CreateSignalOutcome(ctx, outcome); err != nil {
		if errors.Is(err, database.ErrOutcomeExists) {
			// At-least-once delivery means redelivery is normal.
			c.log.Debug().Str("signal_id", outcome.SignalID).Msg("outcome already recorded, skipping")
			return nil
		}
		return fmt.Errorf("failed to store outcome for signal %s: %w", outcome.SignalID, err)
	}

	c.log.Info().
		Str("signal_id", outcome.SignalID).
		Str("provider_id", outcome.ProviderID).
		Bool("correct", outcome.Correct).
		Float64("return_percent", outcome.ReturnPercent).
		Msg("recorded signal outcome")
	return nil
}

// BuildOutcome turns an oracle observation into a stored outcome, deriving
// the realized return from the prices when the oracle didn't precompute it.
func BuildOutcome(data OutcomeEventData) (*models.Outcome, error) {
	if data.SignalID == "" || data.ProviderID == "" {
		return nil, fmt.Errorf("missing signal or provider identity")
	}

	ret := data.ReturnPercent
	if ret == 0 && data.EntryPrice != 0 {
		ret = (data.FinalPrice - data.EntryPrice) / data.EntryPrice * 100
	}

	correct, err := reputation.Evaluate(data.Direction, ret)
	if err != nil {
		return nil, err
	}

	evaluatedAt := time.Now()
	if data.EvaluatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, data.EvaluatedAt)
		if err != nil {
			return nil, fmt.Errorf("bad evaluated_at timestamp: %w", err)
		}
		evaluatedAt = parsed
	}

	return &models.Outcome{
		SignalID:      data.SignalID,
		ProviderID:    data.ProviderID,
		Direction:     data.Direction,
		Confidence:    data.Confidence,
		ReturnPercent: ret,
		Correct:       correct,
		EvaluatedAt:   evaluatedAt,
	}, nil
}

// Close closes the Kafka consumer
func (c *OutcomesConsumer) Close() error {
	return c.reader.Close()
}
