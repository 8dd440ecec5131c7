package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adcatlas/curation-backend/internal/domain/providers"
	redisclient "github.com/adcatlas/curation-backend/internal/infrastructure/clients/redis"
)

// KeyPrefix namespaces curation cache keys so the Redis database can be shared
const KeyPrefix = "curation:cache:"

// RedisAdapter implements the CacheProvider interface using Redis
type RedisAdapter struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return newRedisAdapter(client.Client(), KeyPrefix)
}

func newRedisAdapter(rdb redis.Cmdable, prefix string) *RedisAdapter {
	return &RedisAdapter{rdb: rdb, prefix: prefix}
}

func (a *RedisAdapter) key(k string) string {
	return a.prefix + k
}

// Get returns providers.ErrCacheMiss for absent or expired keys
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.rdb.Get(ctx, a.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	return result, nil
}

// Set stores value. A non-positive expiration keeps the key until deleted;
// go-redis would otherwise read -1 as KEEPTTL.
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	var expiration time.Duration
	if expirationSeconds > 0 {
		expiration = time.Duration(expirationSeconds) * time.Second
	}
	if err := a.rdb.Set(ctx, a.key(key), value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

// Delete removes a value; deleting an absent key is not an error
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.rdb.Del(ctx, a.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from cache: %w", key, err)
	}
	return nil
}

// Exists checks if a key exists in cache
func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.rdb.Exists(ctx, a.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s in cache: %w", key, err)
	}
	return n > 0, nil
}
