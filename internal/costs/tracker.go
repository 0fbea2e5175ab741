// Package costs records every provider call in an append-only ledger and
// aggregates it for cost attribution.
package costs

import (
	"context"
	"fmt"
	"time"

	infracontext "github.com/jonesrussell/competitive-scan/infrastructure/context"
	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

const defaultWriteTimeout = 2 * time.Second

// Repository is the data access interface for the call ledger.
type Repository interface {
	InsertCallLog(ctx context.Context, entry *domain.CallLog) error
	ProviderStats(ctx context.Context, clientID *string, since time.Time) ([]domain.ProviderCostStat, error)
}

// Tracker writes ledger entries and reads aggregates.
type Tracker struct {
	repo         Repository
	logger       infralogger.Logger
	now          func() time.Time
	writeTimeout time.Duration
}

// NewTracker creates a cost tracker.
func NewTracker(repo Repository, log infralogger.Logger) *Tracker {
	return &Tracker{
		repo:         repo,
		logger:       log,
		now:          time.Now,
		writeTimeout: defaultWriteTimeout,
	}
}

// LogCall appends entry to the ledger. The write survives cancellation of ctx,
// is bounded by a short timeout, and its failure is only logged.
func (t *Tracker) LogCall(ctx context.Context, entry domain.CallLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now().UTC()
	}

	writeCtx, cancel := infracontext.Detached(ctx, t.writeTimeout)
	defer cancel()

	if err := t.repo.InsertCallLog(writeCtx, &entry); err != nil {
		t.logger.Warn("Failed to record provider call",
			infralogger.Provider(entry.Provider),
			infralogger.String("operation", entry.Operation),
			infralogger.Bool("cache_hit", entry.CacheHit),
			infralogger.Error(err),
		)
	}
}

// ClientCostSummary aggregates the ledger for one client since the given time.
func (t *Tracker) ClientCostSummary(ctx context.Context, clientID string, since time.Time) (*domain.CostSummary, error) {
	stats, err := t.repo.ProviderStats(ctx, &clientID, since)
	if err != nil {
		return nil, fmt.Errorf("client cost summary: %w", err)
	}

	summary := summarize(stats, since)
	summary.ClientID = &clientID
	return summary, nil
}

// GlobalCostStats aggregates the ledger across all clients since the given time.
func (t *Tracker) GlobalCostStats(ctx context.Context, since time.Time) (*domain.CostSummary, error) {
	stats, err := t.repo.ProviderStats(ctx, nil, since)
	if err != nil {
		return nil, fmt.Errorf("global cost stats: %w", err)
	}

	return summarize(stats, since), nil
}

func summarize(stats []domain.ProviderCostStat, since time.Time) *domain.CostSummary {
	summary := &domain.CostSummary{
		Since:     since,
		Providers: make([]domain.ProviderCostStat, 0, len(stats)),
	}

	for _, s := range stats {
		s.CacheHitRate = domain.HitRate(s.CacheHits, s.TotalCalls)
		summary.Providers = append(summary.Providers, s)
		summary.TotalCalls += s.TotalCalls
		summary.CacheHits += s.CacheHits
		summary.TotalCostUSD += s.TotalCostUSD
	}

	summary.CacheHitRate = domain.HitRate(summary.CacheHits, summary.TotalCalls)
	return summary
}
