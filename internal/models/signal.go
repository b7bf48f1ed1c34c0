package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentalpha/signal-exchange/internal/sighash"
)

// Off-chain signal directions. The on-chain commit form only knows BUY and
// SELL; HOLD and NEUTRAL signals live purely in the registry.
const (
	DirectionBuy     = "BUY"
	DirectionSell    = "SELL"
	DirectionHold    = "HOLD"
	DirectionNeutral = "NEUTRAL"
)

// Signal is a provider's prediction. Economically relevant fields are frozen
// by the commit hash; everything else is registry metadata.
type Signal struct {
	ID             string           `json:"id"`
	ProviderID     string           `json:"provider_id"`
	Token          string           `json:"token"`
	Direction      string           `json:"direction"`
	Confidence     uint8            `json:"confidence"`
	Entry          *decimal.Decimal `json:"entry,omitempty"`
	TakeProfit     *decimal.Decimal `json:"take_profit,omitempty"`
	StopLoss       *decimal.Decimal `json:"stop_loss,omitempty"`
	TimeframeHours uint8            `json:"timeframe_hours"`
	Reason         string           `json:"reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ValidDirection reports whether d is one of the accepted direction strings.
func ValidDirection(d string) bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionHold, DirectionNeutral:
		return true
	}
	return false
}

// HashInput converts the signal into the on-chain commit form. Only BUY and
// SELL signals are committable; the commit also requires all three price
// levels to be present.
func (s *Signal) HashInput() (sighash.Signal, error) {
	var dir sighash.Direction
	switch s.Direction {
	case DirectionBuy:
		dir = sighash.DirectionBuy
	case DirectionSell:
		dir = sighash.DirectionSell
	default:
		return sighash.Signal{}, fmt.Errorf("direction %q cannot be committed on-chain", s.Direction)
	}
	if s.Entry == nil || s.TakeProfit == nil || s.StopLoss == nil {
		return sighash.Signal{}, fmt.Errorf("signal %s is missing price levels required for commit", s.ID)
	}
	return sighash.Signal{
		Token:          s.Token,
		Direction:      dir,
		Entry:          *s.Entry,
		TakeProfit:     *s.TakeProfit,
		StopLoss:       *s.StopLoss,
		TimeframeHours: s.TimeframeHours,
		Confidence:     s.Confidence,
	}, nil
}
