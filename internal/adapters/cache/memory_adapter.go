package cache

import (
	"context"
	"fmt"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/adcatlas/curation-backend/internal/domain/providers"
)

// MemoryAdapter implements CacheProvider in process. Used when Redis is disabled.
type MemoryAdapter struct {
	cache *gocache.Cache
}

// NewMemoryAdapter creates an in-process cache; cleanup runs every cleanupInterval
func NewMemoryAdapter(defaultTTL, cleanupInterval time.Duration) providers.CacheProvider {
	return &MemoryAdapter{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := a.cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected cache entry type %T for %s", v, key)
	}
	return slices.Clone(data), nil
}

// Set stores a value in cache with expiration; zero or negative seconds use the default TTL
func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	ttl := gocache.DefaultExpiration
	if expirationSeconds > 0 {
		ttl = time.Duration(expirationSeconds) * time.Second
	}
	a.cache.Set(key, slices.Clone(value), ttl)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.cache.Delete(key)
	return nil
}

// Exists checks if a key exists in cache
func (a *MemoryAdapter) Exists(_ context.Context, key string) (bool, error) {
	_, ok := a.cache.Get(key)
	return ok, nil
}
