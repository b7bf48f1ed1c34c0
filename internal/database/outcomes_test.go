package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentalpha/signal-exchange/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &DB{conn: conn}, mock
}

func TestCreateSignalOutcome(t *testing.T) {
	db, mock := newMockDB(t)

	evaluated := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO signal_outcomes`).
		WithArgs("sig-1", "prov-1", models.DirectionBuy, uint8(80), 5.2, true, evaluated, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

	o := &models.Outcome{
		SignalID:      "sig-1",
		ProviderID:    "prov-1",
		Direction:     models.DirectionBuy,
		Confidence:    80,
		ReturnPercent: 5.2,
		Correct:       true,
		EvaluatedAt:   evaluated,
	}
	require.NoError(t, db.CreateSignalOutcome(context.Background(), o))
	assert.Equal(t, 7, o.ID)
	assert.False(t, o.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSignalOutcomeDuplicate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`INSERT INTO signal_outcomes`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "signal_outcomes_signal_id_key"})

	err := db.CreateSignalOutcome(context.Background(), &models.Outcome{SignalID: "sig-1"})
	assert.ErrorIs(t, err, ErrOutcomeExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutcomesByProvider(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "signal_id", "provider_id", "direction", "confidence",
		"return_percent", "correct", "evaluated_at", "created_at",
	}).
		AddRow(2, "sig-2", "prov-1", models.DirectionSell, 70, -3.0, true, now, now).
		AddRow(1, "sig-1", "prov-1", models.DirectionBuy, 80, 5.2, true, now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT (.+) FROM signal_outcomes`).
		WithArgs("prov-1").
		WillReturnRows(rows)

	outcomes, err := db.OutcomesByProvider(context.Background(), "prov-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "sig-2", outcomes[0].SignalID)
	assert.Equal(t, models.DirectionBuy, outcomes[1].Direction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutcomesByProviderEmpty(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM signal_outcomes`).
		WithArgs("prov-none").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "signal_id", "provider_id", "direction", "confidence",
			"return_percent", "correct", "evaluated_at", "created_at",
		}))

	outcomes, err := db.OutcomesByProvider(context.Background(), "prov-none")
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestOutcomeBySignalNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM signal_outcomes`).
		WithArgs("sig-missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "signal_id", "provider_id", "direction", "confidence",
			"return_percent", "correct", "evaluated_at", "created_at",
		}))

	o, err := db.OutcomeBySignal(context.Background(), "sig-missing")
	require.NoError(t, err)
	assert.Nil(t, o)
}
