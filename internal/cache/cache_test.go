package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/cache"
	"github.com/jonesrussell/competitive-scan/internal/domain"
	"github.com/jonesrussell/competitive-scan/internal/provider"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCache(store cache.Store) (*cache.Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	return cache.New(store, infralogger.NewNop(), cache.WithClock(clock.Now)), clock
}

func TestCache_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	c, clock := newTestCache(store)
	ctx := t.Context()
	data := json.RawMessage(`{"metrics":{"domain_authority":42}}`)

	require.True(t, c.Set(ctx, provider.NameMoz, "example.com", data, 14*24*time.Hour, 0.01))

	got, ok := c.Get(ctx, provider.NameMoz, "example.com")
	require.True(t, ok)
	assert.JSONEq(t, string(data), string(got))

	clock.now = clock.now.Add(14*24*time.Hour + time.Second)

	_, ok = c.Get(ctx, provider.NameMoz, "example.com")
	assert.False(t, ok, "expired entry must miss")
	assert.Equal(t, 0, store.Len(), "expired entry must be deleted on read")

	clock.now = clock.now.Add(-time.Hour)
	_, ok = c.Get(ctx, provider.NameMoz, "example.com")
	assert.False(t, ok, "expired entry must not be resurrected")
}

func TestCache_SetReplacesPreviousValue(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	c, clock := newTestCache(store)
	ctx := t.Context()

	c.Set(ctx, provider.NamePageSpeed, "example.com", json.RawMessage(`{"v":1}`), time.Hour, 0)
	clock.now = clock.now.Add(30 * time.Minute)
	c.Set(ctx, provider.NamePageSpeed, "example.com", json.RawMessage(`{"v":2}`), time.Hour, 0)

	clock.now = clock.now.Add(45 * time.Minute)
	got, ok := c.Get(ctx, provider.NamePageSpeed, "example.com")
	require.True(t, ok, "second write must refresh expiry")
	assert.JSONEq(t, `{"v":2}`, string(got))
	assert.Equal(t, 1, store.Len())
}

func TestCache_MissOnAbsentKey(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(cache.NewMemoryStore())
	_, ok := c.Get(t.Context(), provider.NameMoz, "nothing.com")
	assert.False(t, ok)
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string, string) (*domain.CacheEntry, error) {
	return nil, s.err
}
func (s failingStore) Upsert(context.Context, *domain.CacheEntry) error { return s.err }
func (s failingStore) Delete(context.Context, string, string) error     { return s.err }
func (s failingStore) DeleteMatching(context.Context, string, string) (int64, error) {
	return 0, s.err
}

func TestCache_StoreFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(failingStore{err: errors.New("connection refused")})
	ctx := t.Context()

	_, ok := c.Get(ctx, provider.NameMoz, "example.com")
	assert.False(t, ok)
	assert.False(t, c.Set(ctx, provider.NameMoz, "example.com", json.RawMessage(`{}`), time.Hour, 0))
	assert.Zero(t, c.Invalidate(ctx, provider.NameMoz, ""))
}

func TestCache_InvalidatePattern(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(cache.NewMemoryStore())
	ctx := t.Context()
	for _, key := range []string{"example.com", "example.com:kw:abc", "other.com"} {
		c.Set(ctx, provider.NameDataForSEO, key, json.RawMessage(`{}`), time.Hour, 0)
	}
	c.Set(ctx, provider.NameMoz, "example.com", json.RawMessage(`{}`), time.Hour, 0)

	assert.Equal(t, int64(2), c.Invalidate(ctx, provider.NameDataForSEO, "example.com*"))

	_, ok := c.Get(ctx, provider.NameDataForSEO, "other.com")
	assert.True(t, ok)
	_, ok = c.Get(ctx, provider.NameMoz, "example.com")
	assert.True(t, ok, "other providers are untouched")

	assert.Equal(t, int64(1), c.Invalidate(ctx, provider.NameDataForSEO, ""))
}

func TestTTLFor(t *testing.T) {
	t.Parallel()

	tests := map[string]time.Duration{
		provider.NameMoz:                 14 * 24 * time.Hour,
		provider.NameGooglePlaces:        14 * 24 * time.Hour,
		provider.NameAddressVerification: 90 * 24 * time.Hour,
		provider.NameProfileInsights:     7 * 24 * time.Hour,
		provider.NameDataForSEO:          7 * 24 * time.Hour,
		provider.NamePageSpeed:           24 * time.Hour,
		"something_new":                  cache.DefaultTTL,
	}

	for name, want := range tests {
		assert.Equal(t, want, cache.TTLFor(name), name)
	}
}
