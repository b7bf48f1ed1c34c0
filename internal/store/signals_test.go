package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentalpha/signal-exchange/internal/models"
)

func newSignal(provider string) models.Signal {
	return models.Signal{
		ProviderID:     provider,
		Token:          "SOL",
		Direction:      models.DirectionBuy,
		Confidence:     80,
		TimeframeHours: 24,
	}
}

func TestCreateAssignsIdentity(t *testing.T) {
	s := NewSignalStore()

	entry := s.Create(newSignal("prov-1"))
	require.NotEmpty(t, entry.Signal.ID)
	assert.Equal(t, StatusPending, entry.Status)
	assert.False(t, entry.Signal.CreatedAt.IsZero())

	got, err := s.Get(entry.Signal.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Signal.ID, got.Signal.ID)
}

func TestGetUnknown(t *testing.T) {
	s := NewSignalStore()
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersByProvider(t *testing.T) {
	s := NewSignalStore()
	s.Create(newSignal("prov-1"))
	s.Create(newSignal("prov-1"))
	s.Create(newSignal("prov-2"))

	assert.Len(t, s.List(""), 3)
	assert.Len(t, s.List("prov-1"), 2)
	assert.Len(t, s.List("prov-3"), 0)
}

func TestLifecycleTransitions(t *testing.T) {
	s := NewSignalStore()
	entry := s.Create(newSignal("prov-1"))
	id := entry.Signal.ID

	// Reveal before commit is out of order.
	assert.ErrorIs(t, s.MarkRevealed(id), ErrInvalidTransition)

	require.NoError(t, s.MarkCommitted(id, "26161284318124a5"))
	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, got.Status)
	assert.Equal(t, "26161284318124a5", got.Hash)

	// Double commit is rejected.
	assert.ErrorIs(t, s.MarkCommitted(id, "other"), ErrInvalidTransition)

	require.NoError(t, s.MarkRevealed(id))
	got, err = s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusRevealed, got.Status)
}

func TestDeleteRevealedRefused(t *testing.T) {
	s := NewSignalStore()
	entry := s.Create(newSignal("prov-1"))
	id := entry.Signal.ID

	require.NoError(t, s.MarkCommitted(id, "abc"))
	require.NoError(t, s.MarkRevealed(id))
	assert.ErrorIs(t, s.Delete(id), ErrInvalidTransition)

	other := s.Create(newSignal("prov-1"))
	require.NoError(t, s.Delete(other.Signal.ID))
	_, err := s.Get(other.Signal.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewSignalStore()
	entry := s.Create(newSignal("prov-1"))

	got, err := s.Get(entry.Signal.ID)
	require.NoError(t, err)
	got.Status = StatusRevealed
	got.Signal.Token = "BONK"

	again, err := s.Get(entry.Signal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
	assert.Equal(t, "SOL", again.Signal.Token)
}

func TestConcurrentCreate(t *testing.T) {
	s := NewSignalStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Create(newSignal("prov-1"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, s.Len())
}
