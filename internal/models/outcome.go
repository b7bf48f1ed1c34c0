package models

import "time"

// Outcome is an oracle's evaluation of a single revealed signal.
type Outcome struct {
	ID            int       `json:"id"`
	SignalID      string    `json:"signal_id"`
	ProviderID    string    `json:"provider_id"`
	Direction     string    `json:"direction"`
	Confidence    uint8     `json:"confidence"`
	ReturnPercent float64   `json:"return_percent"`
	Correct       bool      `json:"correct"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProviderReputation summarizes a provider's recorded outcomes. It is derived
// by a full scan of the outcome history, never stored authoritatively.
type ProviderReputation struct {
	ProviderID     string    `json:"provider_id"`
	TotalSignals   int       `json:"total_signals"`
	CorrectSignals int       `json:"correct_signals"`
	HitRate        float64   `json:"hit_rate"`
	AvgReturn      float64   `json:"avg_return"`
	AvgConfidence  float64   `json:"avg_confidence"`
	LastUpdated    time.Time `json:"last_updated"`
}
