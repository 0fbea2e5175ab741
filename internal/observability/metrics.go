// Package observability provides the Prometheus metrics and tracing spans of the scanner.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

const (
	// MetricsNamespace is the namespace for all scanner metrics.
	MetricsNamespace = "competitive_scan"
)

// Provider call outcomes.
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeLive        = "live"
	OutcomeNoData      = "no_data"
	OutcomeError       = "error"
	OutcomeUnsupported = "unsupported"
)

// Metrics holds all Prometheus metrics for the scanner. A nil *Metrics
// records nothing.
type Metrics struct {
	// Scan metrics
	ScansTotal          *prometheus.CounterVec
	ScanDurationSeconds prometheus.Histogram
	AlertsTotal         *prometheus.CounterVec
	TasksCreatedTotal   prometheus.Counter
	HealthScore         prometheus.Histogram

	// Provider metrics
	ProviderCallsTotal     *prometheus.CounterVec
	ProviderLatencySeconds *prometheus.HistogramVec
	ProviderCostUSDTotal   *prometheus.CounterVec
	CircuitBreakerState    *prometheus.GaugeVec
}

// NewMetrics creates and registers all scanner metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initScanMetrics(factory)
	m.initProviderMetrics(factory)

	return m
}

func (m *Metrics) initScanMetrics(factory promauto.Factory) {
	m.ScansTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "scans_total",
			Help:      "Total number of client scans by outcome",
		},
		[]string{"status"},
	)

	m.ScanDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of a single client scan in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		},
	)

	m.AlertsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "alerts_total",
			Help:      "Total number of alerts raised by type and severity",
		},
		[]string{"type", "severity"},
	)

	m.TasksCreatedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tasks_created_total",
			Help:      "Total number of tasks created from actionable alerts",
		},
	)

	m.HealthScore = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "health_score",
			Help:      "Distribution of computed client health scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		},
	)
}

func (m *Metrics) initProviderMetrics(factory promauto.Factory) {
	m.ProviderCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of provider lookups by outcome",
		},
		[]string{"provider", "outcome"},
	)

	m.ProviderLatencySeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Latency of live provider calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	m.ProviderCostUSDTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "provider",
			Name:      "cost_usd_total",
			Help:      "Total metered provider spend in USD",
		},
		[]string{"provider"},
	)

	m.CircuitBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: "provider",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"provider"},
	)
}

// RecordScan records the outcome and duration of one client scan.
func (m *Metrics) RecordScan(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(status).Inc()
	m.ScanDurationSeconds.Observe(duration.Seconds())
}

// RecordScanResult records alerts, tasks and the health score of a successful scan.
func (m *Metrics) RecordScanResult(alerts []domain.Alert, tasksCreated, healthScore int) {
	if m == nil {
		return
	}
	for i := range alerts {
		m.AlertsTotal.WithLabelValues(string(alerts[i].Type), string(alerts[i].Severity)).Inc()
	}
	m.TasksCreatedTotal.Add(float64(tasksCreated))
	m.HealthScore.Observe(float64(healthScore))
}

// RecordProviderCall records one cache or live lookup. Latency is only
// observed for live calls.
func (m *Metrics) RecordProviderCall(providerName, outcome string, latency time.Duration, costUSD float64) {
	if m == nil {
		return
	}
	m.ProviderCallsTotal.WithLabelValues(providerName, outcome).Inc()
	if outcome == OutcomeLive || outcome == OutcomeNoData || outcome == OutcomeError {
		m.ProviderLatencySeconds.WithLabelValues(providerName).Observe(latency.Seconds())
	}
	if costUSD > 0 {
		m.ProviderCostUSDTotal.WithLabelValues(providerName).Add(costUSD)
	}
}

// SetCircuitBreakerState records the breaker state of a provider.
func (m *Metrics) SetCircuitBreakerState(providerName string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(providerName).Set(float64(state))
}
