package payment

import "sync"

const evictDivisor = 10

// ReplaySet is the bounded in-process record of consumed payment proofs.
// When the set grows past its cap, the oldest tenth is evicted in one batch,
// trading long-run replay protection for bounded memory; an evicted proof
// could in principle be replayed much later. That trade-off is deliberate
// and documented, not an oversight.
type ReplaySet struct {
	mu      sync.Mutex
	entries map[string]struct{}
	order   []string
	max     int
}

// NewReplaySet creates a set holding at most max proofs. A non-positive max
// falls back to 10000.
func NewReplaySet(max int) *ReplaySet {
	if max <= 0 {
		max = 10000
	}
	return &ReplaySet{
		entries: make(map[string]struct{}, max),
		max:     max,
	}
}

// MarkUsed records the proof as consumed. It returns false when the proof
// was already present; the check and the insert are a single atomic step so
// two concurrent requests cannot both spend one proof.
func (s *ReplaySet) MarkUsed(proof string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.entries[proof]; dup {
		return false
	}
	s.entries[proof] = struct{}{}
	s.order = append(s.order, proof)

	if len(s.order) > s.max {
		evict := s.max / evictDivisor
		if evict < 1 {
			evict = 1
		}
		for _, old := range s.order[:evict] {
			delete(s.entries, old)
		}
		s.order = append(s.order[:0], s.order[evict:]...)
	}
	return true
}

// Seen reports whether the proof has been consumed and not yet evicted.
func (s *ReplaySet) Seen(proof string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[proof]
	return ok
}

// Len returns the current number of retained proofs.
func (s *ReplaySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
