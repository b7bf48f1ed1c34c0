package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Solana   SolanaConfig
	Payment  PaymentConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Sync     SyncConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	Host        string
	MetricsAddr string
}

// SolanaConfig holds RPC endpoint and confirmation settings
type SolanaConfig struct {
	RPCURL         string
	Commitment     string
	ConfirmTimeout time.Duration
}

// PaymentConfig holds payment gate settings
type PaymentConfig struct {
	Recipient            string
	Network              string
	MaxAge               time.Duration
	ReplayLimit          int
	DefaultPriceLamports uint64
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers        []string
	LifecycleTopic string
	OutcomesTopic  string
	ConsumerGroup  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// SyncConfig holds provider directory polling settings
type SyncConfig struct {
	Interval time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
		Solana: SolanaConfig{
			RPCURL:         getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
			Commitment:     getEnv("SOLANA_COMMITMENT", "confirmed"),
			ConfirmTimeout: getEnvDuration("SOLANA_CONFIRM_TIMEOUT", 60*time.Second),
		},
		Payment: PaymentConfig{
			Recipient:            getEnv("PAYMENT_RECIPIENT", ""),
			Network:              getEnv("PAYMENT_NETWORK", "solana-devnet"),
			MaxAge:               getEnvDuration("PAYMENT_MAX_AGE", 5*time.Minute),
			ReplayLimit:          getEnvInt("PAYMENT_REPLAY_LIMIT", 10000),
			DefaultPriceLamports: uint64(getEnvInt("PAYMENT_DEFAULT_PRICE_LAMPORTS", 1000000)),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "signals"),
			Password: getEnv("DB_PASSWORD", "signals"),
			DBName:   getEnv("DB_NAME", "signal_exchange"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:        parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			LifecycleTopic: getEnv("KAFKA_LIFECYCLE_TOPIC", "signals.lifecycle"),
			OutcomesTopic:  getEnv("KAFKA_OUTCOMES_TOPIC", "signals.outcomes"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "signal-exchange"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Sync: SyncConfig{
			Interval: getEnvDuration("PROVIDER_SYNC_INTERVAL", 30*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
