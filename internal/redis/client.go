package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentalpha/signal-exchange/internal/config"
	"github.com/agentalpha/signal-exchange/internal/models"
	"github.com/agentalpha/signal-exchange/internal/store"
)

// ErrCacheMiss is returned when the requested key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// Client wraps the Redis client with marketplace-specific operations
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Revealed signal content caching.
// Buyers re-fetch paid content; serving it from cache spares the store and
// keeps the content endpoint fast.

// SetSignalContent caches a revealed signal entry with TTL
func (c *Client) SetSignalContent(ctx context.Context, entry *store.Entry, ttl time.Duration) error {
	key := fmt.Sprintf("signal:%s:content", entry.Signal.ID)
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal signal content: %w", err)
	}
	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

// GetSignalContent retrieves a cached revealed signal entry
func (c *Client) GetSignalContent(ctx context.Context, signalID string) (*store.Entry, error) {
	key := fmt.Sprintf("signal:%s:content", signalID)
	jsonData, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var entry store.Entry
	if err := json.Unmarshal(jsonData, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal content: %w", err)
	}
	return &entry, nil
}

// Reputation snapshot caching

// SetReputation caches a provider reputation snapshot with TTL
func (c *Client) SetReputation(ctx context.Context, rep *models.ProviderReputation, ttl time.Duration) error {
	key := fmt.Sprintf("provider:%s:reputation", rep.ProviderID)
	jsonData, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal reputation: %w", err)
	}
	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

// GetReputation retrieves a cached reputation snapshot
func (c *Client) GetReputation(ctx context.Context, providerID string) (*models.ProviderReputation, error) {
	key := fmt.Sprintf("provider:%s:reputation", providerID)
	jsonData, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var rep models.ProviderReputation
	if err := json.Unmarshal(jsonData, &rep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reputation: %w", err)
	}
	return &rep, nil
}

// InvalidateReputation drops the cached snapshot after a new outcome lands
func (c *Client) InvalidateReputation(ctx context.Context, providerID string) error {
	key := fmt.Sprintf("provider:%s:reputation", providerID)
	return c.rdb.Del(ctx, key).Err()
}

// Generic operations

// Set stores a value with optional TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a string value
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Delete removes a key
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Exists checks if a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, key).Result()
	return result > 0, err
}
