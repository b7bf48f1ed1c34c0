package sighash

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSignal() Signal {
	return Signal{
		Token:          "SOL",
		Direction:      DirectionBuy,
		Entry:          decimal.RequireFromString("105.00"),
		TakeProfit:     decimal.RequireFromString("115.00"),
		StopLoss:       decimal.RequireFromString("100.00"),
		TimeframeHours: 24,
		Confidence:     80,
	}
}

func TestCanonicalString(t *testing.T) {
	_, canonical := Compute(sampleSignal())
	assert.Equal(t, "SOL:0:10500:11500:10000:24:80", canonical)
}

func TestKnownDigest(t *testing.T) {
	// sha256("SOL:0:10500:11500:10000:24:80"), the worked example the
	// on-chain program verifies at reveal time.
	h, _ := Compute(sampleSignal())
	assert.Equal(t, "26161284318124a595a08ed3e888fb3e5fa08317a366408f51e38c5c5a5a4089", h.String())
}

func TestDeterminism(t *testing.T) {
	h1, _ := Compute(sampleSignal())
	h2, _ := Compute(sampleSignal())
	assert.Equal(t, h1, h2)
}

func TestTokenCaseNormalized(t *testing.T) {
	lower := sampleSignal()
	lower.Token = "sol"

	h1, _ := Compute(sampleSignal())
	h2, _ := Compute(lower)
	assert.Equal(t, h1, h2, "committer and revealer must agree regardless of symbol case")
}

func TestEveryFieldChangesDigest(t *testing.T) {
	base, _ := Compute(sampleSignal())

	mutations := map[string]func(*Signal){
		"token":      func(s *Signal) { s.Token = "ETH" },
		"direction":  func(s *Signal) { s.Direction = DirectionSell },
		"entry":      func(s *Signal) { s.Entry = decimal.RequireFromString("105.01") },
		"takeProfit": func(s *Signal) { s.TakeProfit = decimal.RequireFromString("116.00") },
		"stopLoss":   func(s *Signal) { s.StopLoss = decimal.RequireFromString("99.99") },
		"timeframe":  func(s *Signal) { s.TimeframeHours = 48 },
		"confidence": func(s *Signal) { s.Confidence = 81 },
	}

	for name, mutate := range mutations {
		s := sampleSignal()
		mutate(&s)
		h, _ := Compute(s)
		assert.NotEqual(t, base, h, "changing %s must change the digest", name)
	}
}

func TestCentsScaling(t *testing.T) {
	cases := []struct {
		price string
		want  uint64
	}{
		{"0", 0},
		{"1", 100},
		{"100.50", 10050},
		{"0.01", 1},
		{"0.005", 1},    // rounds half away from zero
		{"0.004", 0},    // rounds down
		{"1234.567", 123457},
		{"99999.99", 9999999},
	}
	for _, tc := range cases {
		got := Cents(decimal.RequireFromString(tc.price))
		require.Equal(t, tc.want, got, "price %s", tc.price)
	}
}

func TestFractionalCentsDoNotDesync(t *testing.T) {
	// Two representations of the same economic price hash identically.
	a := sampleSignal()
	a.Entry = decimal.RequireFromString("105")
	b := sampleSignal()
	b.Entry = decimal.RequireFromString("105.000")

	ha, _ := Compute(a)
	hb, _ := Compute(b)
	assert.Equal(t, ha, hb)
}
