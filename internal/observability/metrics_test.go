package observability_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/competitive-scan/internal/domain"
	"github.com/jonesrussell/competitive-scan/internal/observability"
)

func TestMetrics_RecordProviderCall(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics(prometheus.NewRegistry())

	m.RecordProviderCall("moz", observability.OutcomeLive, 300*time.Millisecond, 0.01)
	m.RecordProviderCall("moz", observability.OutcomeCacheHit, 0, 0)
	m.RecordProviderCall("moz", observability.OutcomeCacheHit, 0, 0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("moz", observability.OutcomeLive)), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("moz", observability.OutcomeCacheHit)), 1e-9)
	assert.InDelta(t, 0.01, testutil.ToFloat64(m.ProviderCostUSDTotal.WithLabelValues("moz")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProviderLatencySeconds))
}

func TestMetrics_RecordScanResult(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics(prometheus.NewRegistry())
	m.RecordScan("success", 2*time.Second)
	m.RecordScanResult([]domain.Alert{
		{Type: domain.AlertAuthorityDrop, Severity: domain.SeverityCritical},
		{Type: domain.AlertSpeedRegression, Severity: domain.SeverityWarning},
	}, 2, 61)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ScansTotal.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("authority_drop", "critical")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.TasksCreatedTotal), 1e-9)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.RecordScan("failed", time.Second)
		m.RecordProviderCall("moz", observability.OutcomeError, time.Second, 0)
		m.SetCircuitBreakerState("moz", 1)
		m.RecordScanResult(nil, 0, 50)
	})
}
