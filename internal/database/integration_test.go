//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	infraconfig "github.com/jonesrussell/competitive-scan/infrastructure/config"
	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/database"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

const postgresStartupTimeout = 60 * time.Second

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	ctx := t.Context()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "scan",
				"POSTGRES_PASSWORD": "scan",
				"POSTGRES_DB":       "competitive_scan",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(postgresStartupTimeout),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &infraconfig.DatabaseConfig{
		Host:     host,
		User:     "scan",
		Password: "scan",
		Database: "competitive_scan",
		SSLMode:  "disable",
	}
	cfg.SetDefaults()
	cfg.Port = port.Int()

	db, err := database.NewPostgresConnection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.RunMigrations(db, infralogger.NewNop()))
	return db
}

func seedClient(ctx context.Context, t *testing.T, db *sqlx.DB) {
	t.Helper()

	_, err := db.ExecContext(ctx, `
		INSERT INTO clients (id, name, domain, keywords) VALUES ('client-1', 'Acme', 'acme.example', '{plumber}')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO client_competitors (id, client_id, name, domain, priority) VALUES
			('comp-2', 'client-1', 'Second', 'second.example', 2),
			('comp-1', 'client-1', 'First', 'first.example', 1)`)
	require.NoError(t, err)
}

func TestIntegration_ScanHistoryAndProfile(t *testing.T) {
	db := startPostgres(t)
	ctx := t.Context()
	seedClient(ctx, t, db)

	clients := database.NewClientRepository(db)
	scans := database.NewScanRepository(db)

	client, err := clients.GetClient(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, client.Competitors, 2)
	assert.Equal(t, "comp-1", client.Competitors[0].ID)
	assert.Nil(t, client.HealthScore)

	_, err = scans.LatestScan(ctx, "client-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	first := time.Date(2026, 2, 23, 3, 0, 0, 0, time.UTC)
	for i, score := range []int{72, 55} {
		scan := &domain.Scan{
			ID:          uuid.New(),
			ClientID:    "client-1",
			ScanDate:    first.Add(time.Duration(i) * 7 * 24 * time.Hour),
			HealthScore: score,
			RawMetrics: domain.ScanPayload{
				Client: domain.Snapshot{Metrics: domain.Metrics{domain.MetricDomainAuthority: float64(40 - i*15)}},
			},
		}
		require.NoError(t, scans.SaveScan(ctx, scan))
	}

	latest, err := scans.LatestScan(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 55, latest.HealthScore)
	da, _ := latest.RawMetrics.Client.Metrics.Get(domain.MetricDomainAuthority)
	assert.InDelta(t, 25.0, da, 0.0001)

	client, err = clients.GetClient(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, client.HealthScore)
	assert.Equal(t, 55, *client.HealthScore)

	history, err := scans.ListScans(ctx, "client-1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestIntegration_CacheAndLedger(t *testing.T) {
	db := startPostgres(t)
	ctx := t.Context()
	cacheRepo := database.NewCacheRepository(db)
	costRepo := database.NewCostRepository(db)
	now := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

	for _, key := range []string{"acme.example", "acme.example:kw:0a1b2c3d4e5f", "other.example"} {
		require.NoError(t, cacheRepo.Upsert(ctx, &domain.CacheEntry{
			Provider:  "dataforseo",
			CacheKey:  key,
			Data:      []byte(`{"v":1}`),
			FetchedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))
	}

	n, err := cacheRepo.DeleteMatching(ctx, "dataforseo", "acme.example*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = cacheRepo.Get(ctx, "dataforseo", "other.example")
	require.NoError(t, err)

	clientID := "client-1"
	for _, hit := range []bool{true, false, false} {
		require.NoError(t, costRepo.InsertCallLog(ctx, &domain.CallLog{
			Provider:  "moz",
			Operation: "url_metrics",
			ClientID:  &clientID,
			CacheHit:  hit,
			CostUSD:   0.01,
			Success:   true,
			CreatedAt: now,
		}))
	}

	stats, err := costRepo.ProviderStats(ctx, &clientID, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(3), stats[0].TotalCalls)
	assert.Equal(t, int64(1), stats[0].CacheHits)
	assert.InDelta(t, 0.03, stats[0].TotalCostUSD, 1e-9)
}
