// Package cache keeps provider responses keyed by (provider, cache key) so
// repeated scans of the same site do not pay for the same call twice.
//
// The cache is best-effort: store failures are logged and reported to callers
// as a miss or a skipped write, never as an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/domain"
	"github.com/jonesrussell/competitive-scan/internal/provider"
)

const day = 24 * time.Hour

// DefaultTTL applies to providers without an explicit policy.
const DefaultTTL = day

var ttlByProvider = map[string]time.Duration{
	provider.NameMoz:                 14 * day,
	provider.NameGooglePlaces:        14 * day,
	provider.NamePageSpeed:           day,
	provider.NameDataForSEO:          7 * day,
	provider.NameAddressVerification: 90 * day,
	provider.NameProfileInsights:     7 * day,
}

// TTLFor returns how long a response from the provider stays fresh.
func TTLFor(providerName string) time.Duration {
	if ttl, ok := ttlByProvider[providerName]; ok {
		return ttl
	}
	return DefaultTTL
}

// Store is the persistence behind the cache. Get returns domain.ErrNotFound
// for a missing key. Pattern is a glob over cache keys; empty matches all.
type Store interface {
	Get(ctx context.Context, providerName, key string) (*domain.CacheEntry, error)
	Upsert(ctx context.Context, entry *domain.CacheEntry) error
	Delete(ctx context.Context, providerName, key string) error
	DeleteMatching(ctx context.Context, providerName, pattern string) (int64, error)
}

// Cache enforces expiry at read time on top of a Store.
type Cache struct {
	store  Store
	logger infralogger.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for TTL tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over store.
func New(store Store, log infralogger.Logger, opts ...Option) *Cache {
	c := &Cache{store: store, logger: log, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached data. Absent, expired and unreadable entries all
// report false. Expired entries are deleted on the way out.
func (c *Cache) Get(ctx context.Context, providerName, key string) (json.RawMessage, bool) {
	entry, err := c.store.Get(ctx, providerName, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Cache read failed, treating as miss",
			infralogger.Provider(providerName),
			infralogger.String("cache_key", key),
			infralogger.Error(err),
		)
		return nil, false
	}

	if entry.Expired(c.now()) {
		if delErr := c.store.Delete(ctx, providerName, key); delErr != nil {
			c.logger.Debug("Failed to delete expired cache entry",
				infralogger.Provider(providerName),
				infralogger.String("cache_key", key),
				infralogger.Error(delErr),
			)
		}
		return nil, false
	}

	return entry.Data, true
}

// Set upserts data for ttl, replacing any previous value for the key.
// It reports whether the write reached the store.
func (c *Cache) Set(ctx context.Context, providerName, key string, data json.RawMessage, ttl time.Duration, costUSD float64) bool {
	now := c.now()
	entry := &domain.CacheEntry{
		Provider:  providerName,
		CacheKey:  key,
		Data:      data,
		CostUSD:   costUSD,
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := c.store.Upsert(ctx, entry); err != nil {
		c.logger.Warn("Cache write failed",
			infralogger.Provider(providerName),
			infralogger.String("cache_key", key),
			infralogger.Error(err),
		)
		return false
	}

	return true
}

// Invalidate removes the provider's entries whose key matches pattern and
// returns how many were removed. A failure removes nothing and returns 0.
func (c *Cache) Invalidate(ctx context.Context, providerName, pattern string) int64 {
	n, err := c.store.DeleteMatching(ctx, providerName, pattern)
	if err != nil {
		c.logger.Warn("Cache invalidation failed",
			infralogger.Provider(providerName),
			infralogger.String("pattern", pattern),
			infralogger.Error(err),
		)
		return 0
	}

	c.logger.Info("Cache invalidated",
		infralogger.Provider(providerName),
		infralogger.String("pattern", pattern),
		infralogger.Int64("removed", n),
	)
	return n
}
