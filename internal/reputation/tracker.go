// Package reputation derives provider statistics from recorded signal
// outcomes. Reputation is never stored authoritatively: every read is a
// full recompute over the outcome history.
package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentalpha/signal-exchange/internal/models"
)

// HoldToleranceBand is the absolute return, in percent, within which a HOLD
// or NEUTRAL call counts as correct.
const HoldToleranceBand = 1.0

// OutcomeSource provides the recorded outcome history for a provider.
type OutcomeSource interface {
	OutcomesByProvider(ctx context.Context, providerID string) ([]models.Outcome, error)
}

// Tracker computes reputation aggregates from an outcome source.
type Tracker struct {
	source OutcomeSource
	log    zerolog.Logger
	now    func() time.Time
}

func NewTracker(source OutcomeSource, log zerolog.Logger) *Tracker {
	return &Tracker{
		source: source,
		log:    log.With().Str("component", "reputation").Logger(),
		now:    time.Now,
	}
}

// Evaluate applies the correctness rule for a direction given the realized
// return in percent. BUY calls profit from rises, SELL from falls, and HOLD
// or NEUTRAL from the price staying inside the tolerance band.
func Evaluate(direction string, returnPercent float64) (bool, error) {
	switch direction {
	case models.DirectionBuy:
		return returnPercent > 0, nil
	case models.DirectionSell:
		return returnPercent < 0, nil
	case models.DirectionHold, models.DirectionNeutral:
		return returnPercent >= -HoldToleranceBand && returnPercent <= HoldToleranceBand, nil
	}
	return false, fmt.Errorf("unknown direction %q", direction)
}

// Reputation recomputes the provider's aggregate from its full outcome
// history. A provider with no outcomes yet gets a zeroed aggregate rather
// than an error.
func (t *Tracker) Reputation(ctx context.Context, providerID string) (*models.ProviderReputation, error) {
	outcomes, err := t.source.OutcomesByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("loading outcomes for provider %s: %w", providerID, err)
	}

	rep := &models.ProviderReputation{
		ProviderID:  providerID,
		LastUpdated: t.now(),
	}
	if len(outcomes) == 0 {
		return rep, nil
	}

	var returnSum, confidenceSum float64
	for _, o := range outcomes {
		rep.TotalSignals++
		if o.Correct {
			rep.CorrectSignals++
		}
		returnSum += o.ReturnPercent
		confidenceSum += float64(o.Confidence)
	}
	rep.HitRate = 100 * float64(rep.CorrectSignals) / float64(rep.TotalSignals)
	rep.AvgReturn = returnSum / float64(rep.TotalSignals)
	rep.AvgConfidence = confidenceSum / float64(rep.TotalSignals)

	t.log.Debug().
		Str("provider_id", providerID).
		Int("total", rep.TotalSignals).
		Float64("hit_rate", rep.HitRate).
		Msg("recomputed reputation")
	return rep, nil
}
