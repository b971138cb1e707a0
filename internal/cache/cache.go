package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kjstillabower/weather-desk/internal/models"
)

// Cache defines the interface for weather report caching implementations.
// Get returns a report only while it is fresh. GetStale returns an expired report
// as long as it was stored no more than maxAge ago; used when the upstream fails.
type Cache interface {
	Get(ctx context.Context, key string) (models.Report, bool, error)
	GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Report, bool, error)
	Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error
}

// Key builds the cache key for a city and unit system. City case and surrounding
// whitespace do not matter.
func Key(city, units string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "|" + units
}

// InMemoryCache implements Cache using a mutex-protected map. Expired entries are kept
// for stale reads and purged once they are older than the stale window asked for.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	now  func() time.Time
}

// cacheEntry stores a cached report with its write and expiration timestamps.
type cacheEntry struct {
	value     models.Report
	storedAt  time.Time
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get retrieves the cached report for key if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Report, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return models.Report{}, false, nil
	}
	return entry.value, true, nil
}

// GetStale returns the report for key regardless of TTL if it was stored within maxAge.
// Older entries are removed.
func (c *InMemoryCache) GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return models.Report{}, false, nil
	}
	if c.now().Sub(entry.storedAt) > maxAge {
		delete(c.data, key)
		return models.Report{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the report in cache with the specified TTL duration.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error {
	now := c.now()
	c.mu.Lock()
	c.data[key] = cacheEntry{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries, fresh or stale.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
