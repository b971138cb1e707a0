package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/weather-desk/internal/models"
)

const (
	keyPrefix    = "weatherdesk:report:"
	maxKeyLength = 250
	// maxRelativeExp is the largest expiration memcached treats as relative seconds.
	maxRelativeExp = 30 * 24 * 60 * 60
)

// MemcachedCache implements Cache using memcached. Items live for ttl plus the stale
// retention window so GetStale can still find them after they expire.
type MemcachedCache struct {
	client         *memcache.Client
	staleRetention time.Duration
	now            func() time.Time
}

// envelope is the JSON stored per item.
type envelope struct {
	Report    models.Report `json:"report"`
	StoredAt  time.Time     `json:"storedAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int, staleRetention time.Duration) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	if staleRetention < 0 {
		staleRetention = 0
	}
	return &MemcachedCache{client: client, staleRetention: staleRetention, now: time.Now}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// key escapes k for memcached, which rejects spaces and control characters.
// Keys that would exceed the protocol limit are hashed.
func (c *MemcachedCache) key(k string) string {
	escaped := keyPrefix + url.QueryEscape(k)
	if len(escaped) <= maxKeyLength {
		return escaped
	}
	sum := sha256.Sum256([]byte(k))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *MemcachedCache) load(ctx context.Context, key string) (envelope, bool, error) {
	if ctx.Err() != nil {
		return envelope{}, false, ctx.Err()
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return envelope{}, false, nil
		}
		return envelope{}, false, err
	}
	var env envelope
	if err := json.Unmarshal(item.Value, &env); err != nil {
		return envelope{}, false, err
	}
	return env, true, nil
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context, key string) (models.Report, bool, error) {
	env, ok, err := c.load(ctx, key)
	if err != nil || !ok {
		return models.Report{}, false, err
	}
	if c.now().After(env.ExpiresAt) {
		return models.Report{}, false, nil
	}
	return env.Report, true, nil
}

// GetStale implements Cache.GetStale.
func (c *MemcachedCache) GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Report, bool, error) {
	env, ok, err := c.load(ctx, key)
	if err != nil || !ok {
		return models.Report{}, false, err
	}
	if c.now().Sub(env.StoredAt) > maxAge {
		return models.Report{}, false, nil
	}
	return env.Report, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	now := c.now()
	raw, err := json.Marshal(envelope{Report: value, StoredAt: now, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      raw,
		Expiration: expirationSeconds(ttl + c.staleRetention),
	})
}

func expirationSeconds(d time.Duration) int32 {
	sec := int64(d.Seconds())
	if sec <= 0 || sec > maxRelativeExp {
		return 3600 // fallback 1h if invalid
	}
	return int32(sec)
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
