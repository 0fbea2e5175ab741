package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

type cacheRow struct {
	Provider  string    `db:"provider"`
	CacheKey  string    `db:"cache_key"`
	Data      []byte    `db:"data"`
	CostUSD   float64   `db:"cost_usd"`
	FetchedAt time.Time `db:"fetched_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// CacheRepository is the PostgreSQL backend of the provider response cache.
type CacheRepository struct {
	db *sqlx.DB
}

// NewCacheRepository creates a new cache repository.
func NewCacheRepository(db *sqlx.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Get returns the entry for (provider, key), or domain.ErrNotFound.
func (r *CacheRepository) Get(ctx context.Context, providerName, key string) (*domain.CacheEntry, error) {
	query := `
		SELECT provider, cache_key, data, cost_usd, fetched_at, expires_at
		FROM api_cache
		WHERE provider = $1 AND cache_key = $2`

	var row cacheRow
	if err := r.db.GetContext(ctx, &row, query, providerName, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	return &domain.CacheEntry{
		Provider:  row.Provider,
		CacheKey:  row.CacheKey,
		Data:      row.Data,
		CostUSD:   row.CostUSD,
		FetchedAt: row.FetchedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// Upsert writes entry, replacing the data and expiry of an existing key.
func (r *CacheRepository) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	query := `
		INSERT INTO api_cache (provider, cache_key, data, cost_usd, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, cache_key) DO UPDATE SET
			data = EXCLUDED.data,
			cost_usd = EXCLUDED.cost_usd,
			fetched_at = EXCLUDED.fetched_at,
			expires_at = EXCLUDED.expires_at`

	_, err := r.db.ExecContext(ctx, query,
		entry.Provider, entry.CacheKey, []byte(entry.Data), entry.CostUSD, entry.FetchedAt, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes one entry. Deleting a missing key is not an error.
func (r *CacheRepository) Delete(ctx context.Context, providerName, key string) error {
	query := `DELETE FROM api_cache WHERE provider = $1 AND cache_key = $2`
	if _, err := r.db.ExecContext(ctx, query, providerName, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// DeleteMatching removes the provider's entries whose key matches the glob
// pattern. An empty pattern removes every entry of the provider.
func (r *CacheRepository) DeleteMatching(ctx context.Context, providerName, pattern string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if pattern == "" {
		result, err = r.db.ExecContext(ctx, `DELETE FROM api_cache WHERE provider = $1`, providerName)
	} else {
		query := `DELETE FROM api_cache WHERE provider = $1 AND cache_key LIKE $2 ESCAPE '\'`
		result, err = r.db.ExecContext(ctx, query, providerName, globToLike(pattern))
	}
	if err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}
	return n, nil
}

// globToLike converts * and ? to LIKE wildcards, escaping LIKE metacharacters.
func globToLike(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) + 4)
	for _, r := range pattern {
		switch r {
		case '%', '_', '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case '*':
			b.WriteRune('%')
		case '?':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
