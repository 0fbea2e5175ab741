package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	infrahttp "github.com/jonesrussell/competitive-scan/infrastructure/http"
	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	infraredis "github.com/jonesrussell/competitive-scan/infrastructure/redis"
	"github.com/jonesrussell/competitive-scan/infrastructure/retry"
	"github.com/jonesrussell/competitive-scan/internal/cache"
	"github.com/jonesrussell/competitive-scan/internal/config"
	"github.com/jonesrussell/competitive-scan/internal/costs"
	"github.com/jonesrussell/competitive-scan/internal/database"
	"github.com/jonesrussell/competitive-scan/internal/executor"
	"github.com/jonesrussell/competitive-scan/internal/fetcher"
	"github.com/jonesrussell/competitive-scan/internal/observability"
	"github.com/jonesrussell/competitive-scan/internal/provider"
	"github.com/jonesrussell/competitive-scan/internal/tasks"
)

// Core holds what every command needs: configuration, logger and database.
type Core struct {
	Config *config.Config
	Logger infralogger.Logger
	DB     *sqlx.DB
}

// Open loads the configuration and connects to PostgreSQL.
func Open(ctx context.Context, configPath string) (*Core, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgresConnection(ctx, &cfg.Database)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Debug("Database connection established",
		infralogger.String("host", cfg.Database.Host),
		infralogger.String("database", cfg.Database.Database),
	)

	return &Core{Config: cfg, Logger: log, DB: db}, nil
}

// Close releases the database connection and flushes the logger.
func (c *Core) Close() error {
	closeErr := c.DB.Close()
	if closeErr != nil {
		c.Logger.Error("Failed to close database", infralogger.Error(closeErr))
	}
	_ = c.Logger.Sync()
	return closeErr
}

// CostTracker returns a tracker over the call ledger.
func (c *Core) CostTracker() *costs.Tracker {
	return costs.NewTracker(database.NewCostRepository(c.DB), c.Logger)
}

// OpenCache opens the configured cache backend. The returned close function
// releases a Redis connection when one was opened.
func (c *Core) OpenCache(ctx context.Context) (*cache.Cache, func() error, error) {
	noop := func() error { return nil }

	if c.Config.Cache.Backend != config.CacheBackendRedis {
		return cache.New(database.NewCacheRepository(c.DB), c.Logger), noop, nil
	}

	client, err := infraredis.NewClient(ctx, c.Config.Redis)
	if err != nil {
		return nil, noop, fmt.Errorf("redis cache: %w", err)
	}
	c.Logger.Debug("Using Redis cache backend", infralogger.String("address", c.Config.Redis.Address))

	return cache.New(cache.NewRedisStore(client), c.Logger), client.Close, nil
}

// Scanner is the fully wired scan pipeline.
type Scanner struct {
	*Core

	Cache    *cache.Cache
	Costs    *costs.Tracker
	Registry *provider.Registry
	Metrics  *observability.Metrics
	Fetcher  *fetcher.Fetcher
	Executor *executor.Executor

	closeCache func() error
}

// Scanner wires providers, cache, cost ledger, fetcher and executor. Metrics
// are registered with reg, or the default registry when reg is nil.
func (c *Core) Scanner(ctx context.Context, reg prometheus.Registerer) (*Scanner, error) {
	responseCache, closeCache, err := c.OpenCache(ctx)
	if err != nil {
		return nil, err
	}

	cfg := c.Config
	metrics := observability.NewMetrics(reg)
	tracker := c.CostTracker()

	httpClient := infrahttp.NewClient(&infrahttp.ClientConfig{
		ResponseHeaderTimeout: cfg.Scan.ProviderTimeout,
	})
	registry := SetupProviders(&cfg.Providers, httpClient, c.Logger)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Scan.RetryAttempts

	dataFetcher := fetcher.New(
		registry,
		responseCache,
		tracker,
		cache.TTLFor,
		c.Logger.With(infralogger.String("component", "fetcher")),
		fetcher.Config{
			ProviderTimeout:  cfg.Scan.ProviderTimeout,
			Retry:            retryCfg,
			BreakerThreshold: cfg.Scan.BreakerThreshold,
			BreakerCooldown:  cfg.Scan.BreakerCooldown,
			Limits:           rateLimits(&cfg.Providers),
		},
		fetcher.WithMetrics(metrics),
	)

	creator := tasks.NewCreator(database.NewTaskRepository(c.DB), c.Logger)

	exec := executor.New(
		database.NewClientRepository(c.DB),
		database.NewScanRepository(c.DB),
		dataFetcher,
		creator,
		c.Logger.With(infralogger.String("component", "executor")),
		executor.Config{
			BatchDelay:         cfg.Scan.BatchDelay,
			MaxClientsPerBatch: cfg.Scan.MaxClientsPerBatch,
		},
		executor.WithMetrics(metrics),
	)

	c.Logger.Info("Scanner ready",
		infralogger.Strings("providers", registry.Names()),
		infralogger.String("cache_backend", cfg.Cache.Backend),
	)

	return &Scanner{
		Core:       c,
		Cache:      responseCache,
		Costs:      tracker,
		Registry:   registry,
		Metrics:    metrics,
		Fetcher:    dataFetcher,
		Executor:   exec,
		closeCache: closeCache,
	}, nil
}

// Close releases the cache backend, then the core resources.
func (s *Scanner) Close() error {
	return errors.Join(s.closeCache(), s.Core.Close())
}
