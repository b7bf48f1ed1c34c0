package chain

import (
	"context"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/agentalpha/signal-exchange/internal/metrics"
)

// ProviderDirectory is an in-memory read cache of on-chain provider records,
// refreshed by the Syncer. It is an explicit injected store, never a package
// global.
type ProviderDirectory struct {
	mu         sync.RWMutex
	byAddress  map[solana.PublicKey]*Provider
	lastSyncAt time.Time
}

func NewProviderDirectory() *ProviderDirectory {
	return &ProviderDirectory{byAddress: make(map[solana.PublicKey]*Provider)}
}

// Replace swaps the full provider set in one step.
func (d *ProviderDirectory) Replace(providers []*Provider) {
	next := make(map[solana.PublicKey]*Provider, len(providers))
	for _, p := range providers {
		next[p.Address] = p
	}
	d.mu.Lock()
	d.byAddress = next
	d.lastSyncAt = time.Now()
	d.mu.Unlock()
}

// All returns the cached providers in unspecified order.
func (d *ProviderDirectory) All() []*Provider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Provider, 0, len(d.byAddress))
	for _, p := range d.byAddress {
		out = append(out, p)
	}
	return out
}

// ByAuthority looks up the cached record for an authority key.
func (d *ProviderDirectory) ByAuthority(authority solana.PublicKey) (*Provider, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.byAddress {
		if p.Authority.Equals(authority) {
			return p, true
		}
	}
	return nil, false
}

// LastSyncAt reports when the cache was last refreshed.
func (d *ProviderDirectory) LastSyncAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSyncAt
}

// providerLister is satisfied by *Client.
type providerLister interface {
	GetAllProviders(ctx context.Context) ([]*Provider, error)
}

// Syncer periodically refreshes a ProviderDirectory from the ledger. RPC
// failures are logged and the previous snapshot is kept; the loop never
// crashes the process. Each cycle runs to completion before the next one
// starts, bounding concurrent load on the RPC endpoint.
type Syncer struct {
	client   providerLister
	dir      *ProviderDirectory
	interval time.Duration
	log      zerolog.Logger
}

func NewSyncer(client providerLister, dir *ProviderDirectory, interval time.Duration, log zerolog.Logger) *Syncer {
	return &Syncer{
		client:   client,
		dir:      dir,
		interval: interval,
		log:      log.With().Str("component", "provider-sync").Logger(),
	}
}

// Run blocks until ctx is cancelled. It syncs once immediately, then on every
// tick. In-flight RPC calls observe ctx, so shutdown leaves no orphaned work.
func (s *Syncer) Run(ctx context.Context) {
	s.syncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("provider sync stopped")
			return
		case <-ticker.C:
			s.syncOnce(ctx)
		}
	}
}

func (s *Syncer) syncOnce(ctx context.Context) {
	start := time.Now()
	providers, err := s.client.GetAllProviders(ctx)
	if err != nil {
		metrics.ProviderSyncRuns.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Msg("provider sync failed, keeping previous snapshot")
		return
	}
	s.dir.Replace(providers)
	metrics.ProviderSyncRuns.WithLabelValues("ok").Inc()
	s.log.Debug().Int("providers", len(providers)).Dur("took", time.Since(start)).Msg("provider sync complete")
}
