// Package fetcher builds the client and competitor snapshots of a scan from
// the provider adapters, going through the response cache and recording
// every call in the cost ledger.
package fetcher

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonesrussell/competitive-scan/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/infrastructure/retry"
	"github.com/jonesrussell/competitive-scan/internal/domain"
	"github.com/jonesrussell/competitive-scan/internal/observability"
	"github.com/jonesrussell/competitive-scan/internal/provider"
)

// ErrNoClientData is returned when no metric family could be fetched for the client.
var ErrNoClientData = errors.New("no metric family available for client")

const defaultProviderTimeout = 20 * time.Second

// ResponseCache is the part of the cache the fetcher uses.
type ResponseCache interface {
	Get(ctx context.Context, providerName, key string) (json.RawMessage, bool)
	Set(ctx context.Context, providerName, key string, data json.RawMessage, ttl time.Duration, costUSD float64) bool
}

// CostLogger records provider calls. It never fails the caller.
type CostLogger interface {
	LogCall(ctx context.Context, entry domain.CallLog)
}

// TTLFunc returns the cache lifetime of a provider response.
type TTLFunc func(providerName string) time.Duration

// RateLimit is the token bucket of one provider. RPS <= 0 disables limiting.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Config controls how provider calls are made.
type Config struct {
	ProviderTimeout  time.Duration
	Retry            retry.Config
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Limits           map[string]RateLimit
}

// Fetcher composes the adapters, cache and cost ledger.
type Fetcher struct {
	registry *provider.Registry
	cache    ResponseCache
	costs    CostLogger
	ttl      TTLFunc
	logger   infralogger.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	config   Config
	guards   map[string]*guard
	now      func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMetrics records provider calls in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// New creates a fetcher over every adapter in registry.
func New(
	registry *provider.Registry,
	responseCache ResponseCache,
	costs CostLogger,
	ttl TTLFunc,
	log infralogger.Logger,
	cfg Config,
	opts ...Option,
) *Fetcher {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}

	f := &Fetcher{
		registry: registry,
		cache:    responseCache,
		costs:    costs,
		ttl:      ttl,
		logger:   log,
		tracer:   observability.NewTracer(),
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.guards = make(map[string]*guard, len(registry.Names()))
	for _, name := range registry.Names() {
		f.guards[name] = newGuard(name, cfg, f.onBreakerStateChange)
	}

	return f
}

func (f *Fetcher) onBreakerStateChange(name string, from, to circuitbreaker.State) {
	f.logger.Warn("Provider circuit breaker changed state",
		infralogger.Provider(name),
		infralogger.String("from", from.String()),
		infralogger.String("to", to.String()),
	)
	f.metrics.SetCircuitBreakerState(name, int(to))
}

// OpenBreakers returns the providers whose circuit breaker is not closed, sorted.
func (f *Fetcher) OpenBreakers() []string {
	var open []string
	for _, name := range f.registry.Names() {
		if g, ok := f.guards[name]; ok && g.breaker.State() != circuitbreaker.StateClosed {
			open = append(open, name)
		}
	}
	return open
}

// FetchScanData fetches every metric family for the client, then for each
// competitor in priority order. A failed family is listed in the snapshot's
// Unavailable set; only a client with no family at all is an error.
func (f *Fetcher) FetchScanData(ctx context.Context, client *domain.Client) (*domain.ScanData, error) {
	ctx, span := f.tracer.StageSpan(ctx, "fetch")
	defer span.End()

	data := &domain.ScanData{
		Competitors: make([]domain.CompetitorSnapshot, 0, len(client.Competitors)),
	}

	data.Client = f.fetchSnapshot(ctx, client.ID, client.Target(), &data.APICosts)
	if len(data.Client.Unavailable) == len(domain.AllFamilies()) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			observability.RecordError(span, ctxErr)
			return nil, fmt.Errorf("fetch scan data: %w", ctxErr)
		}
		observability.RecordError(span, ErrNoClientData)
		return nil, fmt.Errorf("client %s: %w", client.ID, ErrNoClientData)
	}

	competitors := slices.Clone(client.Competitors)
	slices.SortStableFunc(competitors, func(a, b domain.Competitor) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	for i := range competitors {
		comp := &competitors[i]
		snap := f.fetchSnapshot(ctx, client.ID, comp.Target(client.Keywords), &data.APICosts)
		data.Competitors = append(data.Competitors, domain.CompetitorSnapshot{
			CompetitorID: comp.ID,
			Name:         comp.Name,
			Priority:     comp.Priority,
			Snapshot:     snap,
		})
	}

	return data, nil
}

func (f *Fetcher) fetchSnapshot(
	ctx context.Context, clientID string, target domain.Target, costs *[]domain.APICost,
) domain.Snapshot {
	snap := domain.Snapshot{
		Target:  target,
		Metrics: domain.Metrics{},
	}

	for _, family := range domain.AllFamilies() {
		result, cost := f.fetchFamily(ctx, clientID, family, target)
		if cost != nil {
			*costs = append(*costs, *cost)
		}
		if result == nil {
			snap.Unavailable = append(snap.Unavailable, family)
			continue
		}
		snap.Metrics = snap.Metrics.Merge(result.Metrics)
		snap.Keywords = append(snap.Keywords, result.Keywords...)
	}

	snap.FetchedAt = f.now().UTC()
	return snap
}

// fetchFamily returns nil when the family has no data for target, for any reason.
func (f *Fetcher) fetchFamily(
	ctx context.Context, clientID string, family domain.Family, target domain.Target,
) (*provider.Result, *domain.APICost) {
	adapter, ok := f.registry.ForFamily(family)
	if !ok {
		return nil, nil
	}
	name := adapter.Name()

	key, keyErr := adapter.CacheKey(target)
	if keyErr != nil {
		f.logger.Debug("Provider cannot address target",
			infralogger.Provider(name),
			infralogger.String("domain", target.Domain),
			infralogger.Error(keyErr),
		)
		f.metrics.RecordProviderCall(name, observability.OutcomeUnsupported, 0, 0)
		return nil, nil
	}

	ctx, span := f.tracer.ProviderSpan(ctx, name, string(family), key)
	defer span.End()

	if result, hit := f.fromCache(ctx, name, key); hit {
		f.costs.LogCall(ctx, domain.CallLog{
			Provider:  name,
			Operation: adapter.Operation(),
			ClientID:  &clientID,
			CacheHit:  true,
			Success:   true,
		})
		f.metrics.RecordProviderCall(name, observability.OutcomeCacheHit, 0, 0)
		return result, &domain.APICost{Provider: name, Operation: adapter.Operation(), CacheHit: true}
	}

	start := f.now()
	result, err := f.callLive(ctx, adapter, target)
	latency := f.now().Sub(start)
	latencyMs := latency.Milliseconds()

	if err != nil {
		observability.RecordError(span, err)
		errMsg := err.Error()
		f.logger.Warn("Provider call failed, marking family unavailable",
			infralogger.ClientID(clientID),
			infralogger.Provider(name),
			infralogger.String("family", string(family)),
			infralogger.String("cache_key", key),
			infralogger.Error(err),
		)
		f.costs.LogCall(ctx, domain.CallLog{
			Provider:  name,
			Operation: adapter.Operation(),
			ClientID:  &clientID,
			LatencyMs: &latencyMs,
			ErrorMsg:  &errMsg,
		})
		f.metrics.RecordProviderCall(name, observability.OutcomeError, latency, 0)
		return nil, nil
	}

	if result == nil {
		f.costs.LogCall(ctx, domain.CallLog{
			Provider:  name,
			Operation: adapter.Operation(),
			ClientID:  &clientID,
			LatencyMs: &latencyMs,
			Success:   true,
		})
		f.metrics.RecordProviderCall(name, observability.OutcomeNoData, latency, 0)
		return nil, nil
	}

	f.toCache(ctx, name, key, result)
	f.costs.LogCall(ctx, domain.CallLog{
		Provider:  name,
		Operation: adapter.Operation(),
		ClientID:  &clientID,
		CostUSD:   result.CostUSD,
		LatencyMs: &latencyMs,
		Success:   true,
	})
	f.metrics.RecordProviderCall(name, observability.OutcomeLive, latency, result.CostUSD)

	return result, &domain.APICost{Provider: name, Operation: adapter.Operation(), CostUSD: result.CostUSD}
}

func (f *Fetcher) fromCache(ctx context.Context, name, key string) (*provider.Result, bool) {
	data, ok := f.cache.Get(ctx, name, key)
	if !ok {
		return nil, false
	}

	var result provider.Result
	if err := json.Unmarshal(data, &result); err != nil {
		f.logger.Warn("Discarding unreadable cache entry",
			infralogger.Provider(name),
			infralogger.String("cache_key", key),
			infralogger.Error(err),
		)
		return nil, false
	}

	return &result, true
}

func (f *Fetcher) toCache(ctx context.Context, name, key string, result *provider.Result) {
	if result.Partial {
		f.logger.Debug("Not caching partial provider result",
			infralogger.Provider(name),
			infralogger.String("cache_key", key),
		)
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		f.logger.Warn("Failed to encode provider result for cache",
			infralogger.Provider(name),
			infralogger.Error(err),
		)
		return
	}
	f.cache.Set(ctx, name, key, data, f.ttl(name), result.CostUSD)
}

// callLive runs the adapter behind the provider's breaker, limiter and retry
// policy, bounded by the provider timeout.
func (f *Fetcher) callLive(ctx context.Context, adapter provider.Adapter, target domain.Target) (*provider.Result, error) {
	g := f.guards[adapter.Name()]

	callCtx, cancel := context.WithTimeout(ctx, f.config.ProviderTimeout)
	defer cancel()

	var result *provider.Result
	err := g.breaker.Execute(callCtx, func(breakerCtx context.Context) error {
		return retry.Do(breakerCtx, f.config.Retry, func(attemptCtx context.Context) error {
			if waitErr := g.limiter.Wait(attemptCtx); waitErr != nil {
				return fmt.Errorf("rate limit wait: %w", waitErr)
			}

			res, fetchErr := adapter.Fetch(attemptCtx, target)
			if fetchErr != nil {
				return fetchErr
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", adapter.Name(), err)
	}

	return result, nil
}
