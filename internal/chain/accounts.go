package chain

import (
	"bytes"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"

	"github.com/agentalpha/signal-exchange/internal/codec"
	"github.com/agentalpha/signal-exchange/internal/sighash"
)

// Oracle outcome codes stored on the commit record.
const (
	OutcomeTakeProfitHit uint8 = 1
	OutcomeStopLossHit   uint8 = 2
	OutcomeExpired       uint8 = 3
)

// Provider is the decoded on-chain provider record.
type Provider struct {
	Address        solana.PublicKey `json:"address"`
	Authority      solana.PublicKey `json:"authority"`
	Name           string           `json:"name"`
	Endpoint       string           `json:"endpoint"`
	Categories     []uint8          `json:"categories"`
	PriceLamports  uint64           `json:"price_lamports"`
	TotalSignals   uint64           `json:"total_signals"`
	CorrectSignals uint64           `json:"correct_signals"`
	TotalReturnBps int64            `json:"total_return_bps"`
	CreatedAt      int64            `json:"created_at"`
	UpdatedAt      int64            `json:"updated_at"`
}

// HitRateBps returns the provider's hit rate in basis points (0-10000).
func (p *Provider) HitRateBps() uint64 {
	if p.TotalSignals == 0 {
		return 0
	}
	return (p.CorrectSignals * 10000) / p.TotalSignals
}

// AvgReturnBps returns the mean per-signal return in basis points.
func (p *Provider) AvgReturnBps() int64 {
	if p.TotalSignals == 0 {
		return 0
	}
	return p.TotalReturnBps / int64(p.TotalSignals)
}

// CommitState is the lifecycle position of a signal commit record.
type CommitState int

const (
	StateUncommitted CommitState = iota
	StateCommitted
	StateRevealed
	StateOutcomeRecorded
)

func (s CommitState) String() string {
	switch s {
	case StateUncommitted:
		return "uncommitted"
	case StateCommitted:
		return "committed"
	case StateRevealed:
		return "revealed"
	case StateOutcomeRecorded:
		return "outcome_recorded"
	}
	return fmt.Sprintf("CommitState(%d)", int(s))
}

// SignalCommit is the decoded on-chain commit record. The revealed and
// outcome sections hold zero values until the corresponding transition has
// happened; Revealed and OutcomeRecorded gate their validity.
type SignalCommit struct {
	Address     solana.PublicKey `json:"address"`
	Provider    solana.PublicKey `json:"provider"`
	SignalHash  sighash.Hash     `json:"signal_hash"`
	CommittedAt int64            `json:"committed_at"`
	Revealed    bool             `json:"revealed"`
	OutcomeDone bool             `json:"outcome_recorded"`

	// Set after reveal.
	Token          string `json:"token,omitempty"`
	Direction      uint8  `json:"direction"`
	EntryCents     uint64 `json:"entry_cents"`
	TakeProfCents  uint64 `json:"tp_cents"`
	StopLossCents  uint64 `json:"sl_cents"`
	TimeframeHours uint8  `json:"timeframe_hours"`
	Confidence     uint8  `json:"confidence"`
	RevealedAt     int64  `json:"revealed_at"`

	// Set after the oracle records an outcome.
	Outcome         uint8  `json:"outcome"`
	FinalPriceCents uint64 `json:"final_price_cents"`
	WasCorrect      bool   `json:"was_correct"`
	ReturnBps       int32  `json:"return_bps"`
	EvaluatedAt     int64  `json:"evaluated_at"`
}

// State derives the lifecycle position from the record's flags. Transitions
// are monotonic; the program rejects anything out of order.
func (c *SignalCommit) State() CommitState {
	switch {
	case c.OutcomeDone:
		return StateOutcomeRecorded
	case c.Revealed:
		return StateRevealed
	default:
		return StateCommitted
	}
}

// CommittedTime returns CommittedAt as wall-clock time.
func (c *SignalCommit) CommittedTime() time.Time {
	return time.Unix(c.CommittedAt, 0).UTC()
}

func checkDiscriminator(data []byte, want [8]byte, kind string) error {
	if len(data) < 8 {
		return fmt.Errorf("%s account too small: %d bytes", kind, len(data))
	}
	if !bytes.Equal(data[:8], want[:]) {
		return fmt.Errorf("not a %s account: discriminator mismatch", kind)
	}
	return nil
}

// DecodeProvider parses a raw provider account blob. Field order and widths
// are fixed; any drift is a breaking change on both sides.
func DecodeProvider(address solana.PublicKey, data []byte) (*Provider, error) {
	if err := checkDiscriminator(data, discProvider, "provider"); err != nil {
		return nil, err
	}

	r := codec.NewReader(data[8:])
	p := &Provider{Address: address}

	authority, err := r.ReadBytes(32)
	if err != nil {
		return nil, fmt.Errorf("provider authority: %w", err)
	}
	p.Authority = solana.PublicKeyFromBytes(authority)

	if p.Name, err = r.ReadString(); err != nil {
		return nil, fmt.Errorf("provider name: %w", err)
	}
	if p.Endpoint, err = r.ReadString(); err != nil {
		return nil, fmt.Errorf("provider endpoint: %w", err)
	}
	if p.Categories, err = r.ReadU8List(); err != nil {
		return nil, fmt.Errorf("provider categories: %w", err)
	}
	if p.PriceLamports, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("provider price: %w", err)
	}
	if p.TotalSignals, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("provider total signals: %w", err)
	}
	if p.CorrectSignals, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("provider correct signals: %w", err)
	}
	if p.TotalReturnBps, err = r.ReadI64(); err != nil {
		return nil, fmt.Errorf("provider total return: %w", err)
	}
	if p.CreatedAt, err = r.ReadI64(); err != nil {
		return nil, fmt.Errorf("provider created at: %w", err)
	}
	if p.UpdatedAt, err = r.ReadI64(); err != nil {
		return nil, fmt.Errorf("provider updated at: %w", err)
	}

	// Trailing bytes (bump seed, rent padding) are ignored.
	return p, nil
}

// DecodeSignalCommit parses a raw signal commit account blob.
func DecodeSignalCommit(address solana.PublicKey, data []byte) (*SignalCommit, error) {
	if err := checkDiscriminator(data, discSignalCommit, "signal commit"); err != nil {
		return nil, err
	}

	r := codec.NewReader(data[8:])
	c := &SignalCommit{Address: address}

	provider, err := r.ReadBytes(32)
	if err != nil {
		return nil, fmt.Errorf("commit provider: %w", err)
	}
	c.Provider = solana.PublicKeyFromBytes(provider)

	hash, err := r.ReadBytes(32)
	if err != nil {
		return nil, fmt.Errorf("commit hash: %w", err)
	}
	copy(c.SignalHash[:], hash)

	if c.CommittedAt, err = r.ReadI64(); err != nil {
		return nil, fmt.Errorf("commit timestamp: %w", err)
	}
	if c.Revealed, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("commit revealed flag: %w", err)
	}
	if c.OutcomeDone, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("commit outcome flag: %w", err)
	}
	if c.Token, err = r.ReadString(); err != nil {
		return nil, fmt.Errorf("commit token: %w", err)
	}
	if c.Direction, err = r.ReadU8(); err != nil {
		return nil, fmt.Errorf("commit direction: %w", err)
	}
	if c.EntryCents, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("commit entry: %w", err)
	}
	if c.TakeProfCents, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("commit take profit: %w", err)
	}
	if c.StopLossCents, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("commit stop loss: %w", err)
	}
	if c.TimeframeHours, err = r.ReadU8(); err != nil {
		return nil, fmt.Errorf("commit timeframe: %w", err)
	}
	if c.Confidence, err = r.ReadU8(); err != nil {
		return nil, fmt.Errorf("commit confidence: %w", err)
	}
	if c.RevealedAt, err = r.ReadI64(); err != nil {
		return nil, fmt.Errorf("commit revealed at: %w", err)
	}
	if c.Outcome, err = r.ReadU8(); err != nil {
		return nil, fmt.Errorf("commit outcome code: %w", err)
	}
	if c.FinalPriceCents, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("commit final price: %w", err)
	}
	if c.WasCorrect, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("commit correctness: %w", err)
	}
	if c.ReturnBps, err = r.ReadI32(); err != nil {
		return nil, fmt.Errorf("commit return bps: %w", err)
	}
	if c.EvaluatedAt, err = r.ReadI64(); err != nil {
		return nil, fmt.Errorf("commit evaluated at: %w", err)
	}

	return c, nil
}
