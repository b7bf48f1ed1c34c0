// Package sighash computes the canonical commit hash for a trading signal.
//
// The on-chain program recomputes the same digest at reveal time, so the
// encoding here must match it byte for byte: prices scaled to integer cents,
// direction as a small integer code, fields joined with ':' in fixed order,
// SHA-256 over the resulting string.
package sighash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is the on-chain direction code carried in the hash input.
type Direction uint8

const (
	DirectionBuy  Direction = 0
	DirectionSell Direction = 1
)

// Hash is the 32-byte SHA-256 commit digest.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Signal carries the economically meaningful fields that are frozen by the
// commit. Prices are in whole currency units (e.g. dollars), not cents.
type Signal struct {
	Token          string
	Direction      Direction
	Entry          decimal.Decimal
	TakeProfit     decimal.Decimal
	StopLoss       decimal.Decimal
	TimeframeHours uint8
	Confidence     uint8
}

// Cents scales a price to integer cents, rounding half away from zero.
// Scaling to integers keeps the hash input free of floating-point formatting
// differences between committer and revealer.
func Cents(price decimal.Decimal) uint64 {
	return uint64(price.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// Canonical returns the pre-hash input string:
//
//	{token}:{directionCode}:{entryCents}:{tpCents}:{slCents}:{timeframeHours}:{confidence}
//
// The token symbol is upper-cased here rather than left to callers; a
// committer and revealer that disagree on case would otherwise produce a
// legitimate-looking HashMismatch.
func Canonical(s Signal) string {
	return fmt.Sprintf("%s:%d:%d:%d:%d:%d:%d",
		strings.ToUpper(s.Token),
		s.Direction,
		Cents(s.Entry),
		Cents(s.TakeProfit),
		Cents(s.StopLoss),
		s.TimeframeHours,
		s.Confidence,
	)
}

// Compute returns the commit digest for s along with the canonical input
// string the digest was taken over, for diagnostics.
func Compute(s Signal) (Hash, string) {
	canonical := Canonical(s)
	return Hash(sha256.Sum256([]byte(canonical))), canonical
}
