package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/agentalpha/signal-exchange/internal/metrics"
	"github.com/agentalpha/signal-exchange/internal/models"
)

// ErrOutcomeExists is returned when an outcome was already recorded for the
// signal. One outcome per signal, ever.
var ErrOutcomeExists = errors.New("outcome already recorded for this signal")

// CreateSignalOutcome inserts an oracle evaluation. The signal_outcomes table
// carries a unique constraint on signal_id, so recording twice fails with
// ErrOutcomeExists instead of silently double-counting.
func (db *DB) CreateSignalOutcome(ctx context.Context, o *models.Outcome) error {
	query := `
		INSERT INTO signal_outcomes (signal_id, provider_id, direction, confidence, return_percent, correct, evaluated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	now := time.Now()
	err := db.conn.QueryRowContext(ctx, query,
		o.SignalID, o.ProviderID, o.Direction, o.Confidence,
		o.ReturnPercent, o.Correct, o.EvaluatedAt, now,
	).Scan(&o.ID, &o.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrOutcomeExists
		}
		return fmt.Errorf("failed to create signal outcome: %w", err)
	}
	metrics.OutcomesRecorded.Inc()
	return nil
}

// OutcomesByProvider returns the full outcome history for a provider, newest
// first. The reputation tracker consumes this in one scan.
func (db *DB) OutcomesByProvider(ctx context.Context, providerID string) ([]models.Outcome, error) {
	query := `
		SELECT id, signal_id, provider_id, direction, confidence, return_percent, correct, evaluated_at, created_at
		FROM signal_outcomes
		WHERE provider_id = $1
		ORDER BY evaluated_at DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes for provider %s: %w", providerID, err)
	}
	defer rows.Close()

	var outcomes []models.Outcome
	for rows.Next() {
		var o models.Outcome
		err := rows.Scan(
			&o.ID, &o.SignalID, &o.ProviderID, &o.Direction,
			&o.Confidence, &o.ReturnPercent, &o.Correct,
			&o.EvaluatedAt, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read signal outcomes: %w", err)
	}

	return outcomes, nil
}

// OutcomeBySignal returns the recorded outcome for a signal, or nil when none
// exists yet.
func (db *DB) OutcomeBySignal(ctx context.Context, signalID string) (*models.Outcome, error) {
	query := `
		SELECT id, signal_id, provider_id, direction, confidence, return_percent, correct, evaluated_at, created_at
		FROM signal_outcomes
		WHERE signal_id = $1
	`
	var o models.Outcome
	err := db.conn.QueryRowContext(ctx, query, signalID).Scan(
		&o.ID, &o.SignalID, &o.ProviderID, &o.Direction,
		&o.Confidence, &o.ReturnPercent, &o.Correct,
		&o.EvaluatedAt, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get outcome for signal %s: %w", signalID, err)
	}
	return &o, nil
}
