// Package store holds off-chain signal state. Signals live here from
// creation until they are committed and revealed on-chain; the registry
// serves their content through the payment gate.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentalpha/signal-exchange/internal/models"
)

// Signal lifecycle inside the registry. The ledger is authoritative for the
// committed/revealed transitions; the store mirrors them for serving.
const (
	StatusPending   = "PENDING"
	StatusCommitted = "COMMITTED"
	StatusRevealed  = "REVEALED"
)

var (
	ErrNotFound          = errors.New("signal not found")
	ErrInvalidTransition = errors.New("invalid signal status transition")
)

// Entry is a stored signal with its registry-side lifecycle state. Hash is
// the hex commit digest, set once the signal has been committed.
type Entry struct {
	Signal models.Signal `json:"signal"`
	Status string        `json:"status"`
	Hash   string        `json:"hash,omitempty"`
}

// SignalStore is an in-memory signal registry keyed by generated identifier.
// Safe for concurrent use.
type SignalStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewSignalStore() *SignalStore {
	return &SignalStore{entries: make(map[string]*Entry)}
}

// Create assigns the signal an identifier and stores it as PENDING.
func (s *SignalStore) Create(sig models.Signal) *Entry {
	sig.ID = uuid.NewString()
	sig.CreatedAt = time.Now()

	entry := &Entry{Signal: sig, Status: StatusPending}
	s.mu.Lock()
	s.entries[sig.ID] = entry
	s.mu.Unlock()

	copied := *entry
	return &copied
}

// Get returns a copy of the stored entry.
func (s *SignalStore) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("signal %s: %w", id, ErrNotFound)
	}
	copied := *entry
	return &copied, nil
}

// List returns all entries, newest first. providerID filters when non-empty.
func (s *SignalStore) List(providerID string) []*Entry {
	s.mu.RLock()
	out := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if providerID != "" && entry.Signal.ProviderID != providerID {
			continue
		}
		copied := *entry
		out = append(out, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Signal.CreatedAt.After(out[j].Signal.CreatedAt)
	})
	return out
}

// MarkCommitted records the commit hash and moves the signal to COMMITTED.
// Only PENDING signals can be committed.
func (s *SignalStore) MarkCommitted(id, hash string) error {
	return s.transition(id, StatusCommitted, func(entry *Entry) error {
		if entry.Status != StatusPending {
			return fmt.Errorf("signal %s is %s: %w", id, entry.Status, ErrInvalidTransition)
		}
		entry.Hash = hash
		return nil
	})
}

// MarkRevealed moves a COMMITTED signal to REVEALED.
func (s *SignalStore) MarkRevealed(id string) error {
	return s.transition(id, StatusRevealed, func(entry *Entry) error {
		if entry.Status != StatusCommitted {
			return fmt.Errorf("signal %s is %s: %w", id, entry.Status, ErrInvalidTransition)
		}
		return nil
	})
}

// Delete removes a signal. Revealed signals stay forever; their content has
// been sold and buyers may re-fetch it.
func (s *SignalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("signal %s: %w", id, ErrNotFound)
	}
	if entry.Status == StatusRevealed {
		return fmt.Errorf("signal %s is revealed: %w", id, ErrInvalidTransition)
	}
	delete(s.entries, id)
	return nil
}

// Len reports the number of stored signals.
func (s *SignalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *SignalStore) transition(id, to string, check func(*Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("signal %s: %w", id, ErrNotFound)
	}
	if err := check(entry); err != nil {
		return err
	}
	entry.Status = to
	return nil
}
