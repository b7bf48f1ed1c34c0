package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "confirmed", cfg.Solana.Commitment)
	assert.Equal(t, 5*time.Minute, cfg.Payment.MaxAge)
	assert.Equal(t, 10000, cfg.Payment.ReplayLimit)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("PAYMENT_MAX_AGE", "2m")
	t.Setenv("PAYMENT_REPLAY_LIMIT", "not-a-number")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	cfg := Load()
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Payment.MaxAge)
	assert.Equal(t, 10000, cfg.Payment.ReplayLimit)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "db", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/db?sslmode=disable", d.ConnectionString())
}
