// Package memory provides in-memory repository implementations used when
// Redis is disabled and throughout the test suite
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chatling/v2/internal/ports/outbound"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e cacheEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// CacheRepository implements outbound.CacheRepository with a mutex-guarded map.
// Expired entries are dropped lazily on access.
type CacheRepository struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCacheRepository creates an in-memory cache repository
func NewCacheRepository() outbound.CacheRepository {
	return &CacheRepository{entries: make(map[string]cacheEntry)}
}

// Get retrieves a value; a missing or expired key yields (nil, nil)
func (r *CacheRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if entry.expired() {
		r.mu.Lock()
		delete(r.entries, key)
		r.mu.Unlock()
		return nil, nil
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores a value with TTL; a zero TTL means no expiry
func (r *CacheRepository) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	entry := cacheEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()
	return nil
}

// Delete removes a value
func (r *CacheRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

// Exists checks whether a live key exists
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	value, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return value != nil, nil
}
