package reputation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentalpha/signal-exchange/internal/models"
)

type stubSource struct {
	outcomes map[string][]models.Outcome
	err      error
}

func (s *stubSource) OutcomesByProvider(ctx context.Context, providerID string) ([]models.Outcome, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.outcomes[providerID], nil
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		direction string
		ret       float64
		correct   bool
	}{
		{models.DirectionBuy, 5.0, true},
		{models.DirectionBuy, 0.0, false},
		{models.DirectionBuy, -1.2, false},
		{models.DirectionSell, -3.0, true},
		{models.DirectionSell, 0.0, false},
		{models.DirectionSell, 2.0, false},
		{models.DirectionHold, 0.4, true},
		{models.DirectionHold, -1.0, true},
		{models.DirectionHold, 1.5, false},
		{models.DirectionNeutral, -0.9, true},
		{models.DirectionNeutral, -4.0, false},
	}
	for _, tc := range cases {
		got, err := Evaluate(tc.direction, tc.ret)
		require.NoError(t, err)
		assert.Equalf(t, tc.correct, got, "%s at %+.1f%%", tc.direction, tc.ret)
	}
}

func TestEvaluateUnknownDirection(t *testing.T) {
	_, err := Evaluate("SIDEWAYS", 1.0)
	assert.Error(t, err)
}

func TestReputationAggregation(t *testing.T) {
	src := &stubSource{outcomes: map[string][]models.Outcome{
		"prov-1": {
			{ProviderID: "prov-1", Direction: models.DirectionBuy, Confidence: 80, ReturnPercent: 5.0, Correct: true},
			{ProviderID: "prov-1", Direction: models.DirectionSell, Confidence: 70, ReturnPercent: 2.0, Correct: false},
			{ProviderID: "prov-1", Direction: models.DirectionBuy, Confidence: 60, ReturnPercent: -1.0, Correct: false},
		},
	}}
	tr := NewTracker(src, zerolog.Nop())

	rep, err := tr.Reputation(context.Background(), "prov-1")
	require.NoError(t, err)
	assert.Equal(t, "prov-1", rep.ProviderID)
	assert.Equal(t, 3, rep.TotalSignals)
	assert.Equal(t, 1, rep.CorrectSignals)
	assert.InDelta(t, 33.333, rep.HitRate, 0.001)
	assert.InDelta(t, 2.0, rep.AvgReturn, 0.0001)
	assert.InDelta(t, 70.0, rep.AvgConfidence, 0.0001)
	assert.False(t, rep.LastUpdated.IsZero())
}

func TestReputationNoOutcomes(t *testing.T) {
	tr := NewTracker(&stubSource{outcomes: map[string][]models.Outcome{}}, zerolog.Nop())

	rep, err := tr.Reputation(context.Background(), "prov-empty")
	require.NoError(t, err)
	assert.Equal(t, 0, rep.TotalSignals)
	assert.Equal(t, 0.0, rep.HitRate)
	assert.Equal(t, 0.0, rep.AvgReturn)
}

func TestReputationSourceError(t *testing.T) {
	tr := NewTracker(&stubSource{err: errors.New("db down")}, zerolog.Nop())

	_, err := tr.Reputation(context.Background(), "prov-1")
	assert.Error(t, err)
}

func TestReputationMatchesFullScan(t *testing.T) {
	outcomes := make([]models.Outcome, 0, 20)
	for i := 0; i < 20; i++ {
		ret := float64(i%7) - 3.0
		correct, err := Evaluate(models.DirectionBuy, ret)
		require.NoError(t, err)
		outcomes = append(outcomes, models.Outcome{
			ProviderID:    "prov-scan",
			Direction:     models.DirectionBuy,
			Confidence:    uint8(50 + i),
			ReturnPercent: ret,
			Correct:       correct,
			EvaluatedAt:   time.Now(),
		})
	}
	tr := NewTracker(&stubSource{outcomes: map[string][]models.Outcome{"prov-scan": outcomes}}, zerolog.Nop())

	rep, err := tr.Reputation(context.Background(), "prov-scan")
	require.NoError(t, err)

	var wantCorrect int
	var wantReturn float64
	for _, o := range outcomes {
		if o.Correct {
			wantCorrect++
		}
		wantReturn += o.ReturnPercent
	}
	assert.Equal(t, wantCorrect, rep.CorrectSignals)
	assert.InDelta(t, wantReturn/20, rep.AvgReturn, 0.0001)
}
