package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// CostRepository stores the append-only provider call ledger.
type CostRepository struct {
	db *sqlx.DB
}

// NewCostRepository creates a new cost repository.
func NewCostRepository(db *sqlx.DB) *CostRepository {
	return &CostRepository{db: db}
}

// InsertCallLog appends one ledger row.
func (r *CostRepository) InsertCallLog(ctx context.Context, entry *domain.CallLog) error {
	query := `
		INSERT INTO api_cost_log (
			provider, operation, client_id, cache_hit, cost_usd, latency_ms, success, error_msg, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		entry.Provider, entry.Operation, entry.ClientID, entry.CacheHit, entry.CostUSD,
		entry.LatencyMs, entry.Success, entry.ErrorMsg, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

// ProviderStats aggregates the ledger per provider since the given time,
// optionally for a single client.
func (r *CostRepository) ProviderStats(ctx context.Context, clientID *string, since time.Time) ([]domain.ProviderCostStat, error) {
	query := `
		SELECT
			provider,
			COUNT(*) AS total_calls,
			COUNT(*) FILTER (WHERE cache_hit) AS cache_hits,
			COUNT(*) FILTER (WHERE NOT success) AS failures,
			COALESCE(SUM(cost_usd), 0) AS total_cost_usd
		FROM api_cost_log
		WHERE created_at >= $1
		  AND ($2::text IS NULL OR client_id = $2)
		GROUP BY provider
		ORDER BY provider`

	var stats []domain.ProviderCostStat
	if err := r.db.SelectContext(ctx, &stats, query, since, clientID); err != nil {
		return nil, fmt.Errorf("provider cost stats: %w", err)
	}
	return stats, nil
}
