//nolint:testpackage // Testing internal repository requires same package access
package database

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestClientRepository_GetClient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)
	lastScan := time.Date(2026, 2, 23, 3, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id").
		WithArgs("client-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "domain", "place_id", "keywords", "health_score", "last_scan_at", "active",
		}).AddRow("client-1", "Acme Plumbing", "acme.example", nil, `{plumber,"drain cleaning"}`, int64(72), lastScan, true))

	mock.ExpectQuery("FROM client_competitors").
		WithArgs("client-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "name", "domain", "place_id", "priority"}).
			AddRow("comp-1", "client-1", "Rival", "rival.example", "place-9", 1).
			AddRow("comp-2", "client-1", "Other", "other.example", nil, 2))

	client, err := repo.GetClient(t.Context(), "client-1")
	require.NoError(t, err)

	assert.Equal(t, "acme.example", client.Domain)
	assert.Empty(t, client.PlaceID)
	assert.Equal(t, []string{"plumber", "drain cleaning"}, client.Keywords)
	require.NotNil(t, client.HealthScore)
	assert.Equal(t, 72, *client.HealthScore)
	require.NotNil(t, client.LastScanAt)
	assert.True(t, client.LastScanAt.Equal(lastScan))
	require.Len(t, client.Competitors, 2)
	assert.Equal(t, "place-9", client.Competitors[0].PlaceID)
	assert.Equal(t, 2, client.Competitors[1].Priority)

	expectationsMet(t, mock)
}

func TestClientRepository_GetClient_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectQuery("FROM clients WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "domain", "place_id", "keywords", "health_score", "last_scan_at", "active",
		}))

	_, err := repo.GetClient(t.Context(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	expectationsMet(t, mock)
}

func TestClientRepository_ListActiveClientIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectQuery("SELECT id FROM clients").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := repo.ListActiveClientIDs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	expectationsMet(t, mock)
}

var scanColumns = []string{
	"id", "client_id", "scan_date", "health_score", "previous_health_score",
	"raw_metrics", "deltas", "alerts", "api_costs", "total_cost_usd",
}

func TestScanRepository_LatestScan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScanRepository(db)
	scanID := uuid.New()
	scanDate := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

	rawMetrics := `{"client":{"target":{"domain":"acme.example"},"metrics":{"domain_authority":40},"fetched_at":"2026-03-02T03:00:00Z"},"competitors":[]}`
	deltas := `{"metric_deltas":[],"keyword_deltas":[],"competitor_gaps":[],"has_history":false}`
	alerts := `[{"type":"authority_drop","severity":"warning","title":"t","description":"d","metric":"domain_authority","condition":"domain_authority"}]`

	mock.ExpectQuery("FROM competitive_scans").
		WithArgs("client-1").
		WillReturnRows(sqlmock.NewRows(scanColumns).AddRow(
			scanID.String(), "client-1", scanDate, int64(64), nil,
			[]byte(rawMetrics), []byte(deltas), []byte(alerts), []byte(`[]`), 0.02,
		))

	scan, err := repo.LatestScan(t.Context(), "client-1")
	require.NoError(t, err)

	assert.Equal(t, scanID, scan.ID)
	assert.Equal(t, 64, scan.HealthScore)
	assert.Nil(t, scan.PreviousHealthScore)
	da, ok := scan.RawMetrics.Client.Metrics.Get(domain.MetricDomainAuthority)
	require.True(t, ok)
	assert.InDelta(t, 40.0, da, 0.0001)
	require.Len(t, scan.Alerts, 1)
	assert.Equal(t, domain.AlertAuthorityDrop, scan.Alerts[0].Type)

	expectationsMet(t, mock)
}

func TestScanRepository_LatestScan_NoHistory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScanRepository(db)

	mock.ExpectQuery("FROM competitive_scans").
		WithArgs("client-1").
		WillReturnRows(sqlmock.NewRows(scanColumns))

	_, err := repo.LatestScan(t.Context(), "client-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	expectationsMet(t, mock)
}

func newScan() *domain.Scan {
	return &domain.Scan{
		ID:          uuid.New(),
		ClientID:    "client-1",
		ScanDate:    time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC),
		HealthScore: 55,
	}
}

func TestScanRepository_SaveScan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScanRepository(db)
	scan := newScan()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO competitive_scans").
		WithArgs(
			scan.ID, "client-1", scan.ScanDate, 55, nil,
			sqlmock.AnyArg(), sqlmock.AnyArg(), []byte(`[]`), []byte(`[]`), 0.0,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE clients").
		WithArgs("client-1", 55, scan.ScanDate).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveScan(t.Context(), scan))

	expectationsMet(t, mock)
}

func TestScanRepository_SaveScan_RollsBackWhenClientMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO competitive_scans").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE clients").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SaveScan(t.Context(), newScan())
	require.ErrorIs(t, err, domain.ErrNotFound)

	expectationsMet(t, mock)
}

func TestScanRepository_SaveScan_DuplicateID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO competitive_scans").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "competitive_scans_pkey"})
	mock.ExpectRollback()

	err := repo.SaveScan(t.Context(), newScan())
	require.ErrorIs(t, err, ErrDuplicate)

	expectationsMet(t, mock)
}

func TestTaskRepository_CreateTask(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	scanID := uuid.New()
	task := &domain.ClientTask{
		ID:           uuid.New(),
		ClientID:     "client-1",
		ScanID:       &scanID,
		Title:        "Write content for plumber",
		Category:     domain.TaskCategoryContent,
		Priority:     domain.TaskPriorityHigh,
		Source:       domain.TaskSourceCompetitiveScan,
		ContentBrief: map[string]any{"keyword": "plumber"},
		Status:       domain.TaskStatusOpen,
		CreatedAt:    time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO client_tasks").
		WithArgs(
			task.ID, "client-1", sqlmock.AnyArg(), task.Title, "content", "high",
			"competitive_scan", []byte(`{"keyword":"plumber"}`), "open", task.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateTask(t.Context(), task))

	expectationsMet(t, mock)
}

func TestTaskRepository_CreateTask_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("INSERT INTO client_tasks").WillReturnError(errors.New("connection reset"))

	err := repo.CreateTask(t.Context(), &domain.ClientTask{ID: uuid.New(), ClientID: "client-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	expectationsMet(t, mock)
}

var cacheColumns = []string{"provider", "cache_key", "data", "cost_usd", "fetched_at", "expires_at"}

func TestCacheRepository_GetAndUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCacheRepository(db)
	fetched := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	expires := fetched.Add(14 * 24 * time.Hour)

	mock.ExpectQuery("FROM api_cache").
		WithArgs("moz", "acme.example").
		WillReturnRows(sqlmock.NewRows(cacheColumns).
			AddRow("moz", "acme.example", []byte(`{"domain_authority":40}`), 0.01, fetched, expires))

	entry, err := repo.Get(t.Context(), "moz", "acme.example")
	require.NoError(t, err)
	assert.JSONEq(t, `{"domain_authority":40}`, string(entry.Data))
	assert.True(t, entry.ExpiresAt.Equal(expires))

	mock.ExpectExec("ON CONFLICT \\(provider, cache_key\\) DO UPDATE").
		WithArgs("moz", "acme.example", []byte(`{}`), 0.01, fetched, expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(t.Context(), &domain.CacheEntry{
		Provider:  "moz",
		CacheKey:  "acme.example",
		Data:      json.RawMessage(`{}`),
		CostUSD:   0.01,
		FetchedAt: fetched,
		ExpiresAt: expires,
	}))

	expectationsMet(t, mock)
}

func TestCacheRepository_GetMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCacheRepository(db)

	mock.ExpectQuery("FROM api_cache").
		WithArgs("moz", "nothing.example").
		WillReturnRows(sqlmock.NewRows(cacheColumns))

	_, err := repo.Get(t.Context(), "moz", "nothing.example")
	require.ErrorIs(t, err, domain.ErrNotFound)

	expectationsMet(t, mock)
}

func TestCacheRepository_DeleteMatching(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCacheRepository(db)

	mock.ExpectExec("cache_key LIKE").
		WithArgs("dataforseo", "acme.example%").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteMatching(t.Context(), "dataforseo", "acme.example*")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectExec("DELETE FROM api_cache WHERE provider = \\$1$").
		WithArgs("pagespeed").
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err = repo.DeleteMatching(t.Context(), "pagespeed", "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	expectationsMet(t, mock)
}

func TestGlobToLike(t *testing.T) {
	tests := map[string]string{
		"acme.example*": "acme.example%",
		"place:?bc":     "place:_bc",
		"100%_off*":     `100\%\_off%`,
		`back\slash`:    `back\\slash`,
		"exact.example": "exact.example",
		"*:kw:*":        "%:kw:%",
	}

	for in, want := range tests {
		assert.Equal(t, want, globToLike(in), in)
	}
}

func TestCostRepository_InsertCallLog(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCostRepository(db)
	clientID := "client-1"
	latency := int64(420)
	created := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO api_cost_log").
		WithArgs("moz", "url_metrics", "client-1", false, 0.01, int64(420), true, nil, created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.InsertCallLog(t.Context(), &domain.CallLog{
		Provider:  "moz",
		Operation: "url_metrics",
		ClientID:  &clientID,
		CostUSD:   0.01,
		LatencyMs: &latency,
		Success:   true,
		CreatedAt: created,
	}))

	expectationsMet(t, mock)
}

func TestCostRepository_ProviderStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCostRepository(db)
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	statColumns := []string{"provider", "total_calls", "cache_hits", "failures", "total_cost_usd"}

	mock.ExpectQuery("FROM api_cost_log").
		WithArgs(since, nil).
		WillReturnRows(sqlmock.NewRows(statColumns).
			AddRow("google_places", int64(10), int64(6), int64(1), 0.068).
			AddRow("moz", int64(4), int64(2), int64(0), 0.02))

	stats, err := repo.ProviderStats(t.Context(), nil, since)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, int64(6), stats[0].CacheHits)
	assert.InDelta(t, 0.02, stats[1].TotalCostUSD, 1e-9)

	clientID := "client-1"
	mock.ExpectQuery("FROM api_cost_log").
		WithArgs(since, "client-1").
		WillReturnRows(sqlmock.NewRows(statColumns))

	stats, err = repo.ProviderStats(t.Context(), &clientID, since)
	require.NoError(t, err)
	assert.Empty(t, stats)

	expectationsMet(t, mock)
}
