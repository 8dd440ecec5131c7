package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/adcatlas/curation-backend/pkg/config"
	"github.com/adcatlas/curation-backend/pkg/retry"
)

// Client represents a Redis client
type Client struct {
	client *redis.Client
}

// startupRetry is short: Redis is optional and callers fall back to in-process
// cache and events when it stays unreachable.
var startupRetry = retry.Config{
	MaxAttempts:     3,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        time.Second,
	BackoffFactor:   2.0,
	MaxTotalTimeout: 5 * time.Second,
}

// NewClient connects to Redis, retrying the initial ping
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	return newClient(cfg, startupRetry)
}

func newClient(cfg *config.RedisConfig, retryConfig retry.Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Redis",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rdb.Ping(ctx).Err()
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Redis connection attempt failed, retrying")
		},
	)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr(), err)
	}

	return &Client{client: rdb}, nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{client: rdb}
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
