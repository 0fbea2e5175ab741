package delta_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/competitive-scan/internal/delta"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

func intPtr(v int) *int { return &v }

func previousScan(metrics domain.Metrics, keywords ...domain.KeywordRanking) *domain.Scan {
	return &domain.Scan{
		HealthScore: 72,
		RawMetrics: domain.ScanPayload{
			Client: domain.Snapshot{Metrics: metrics, Keywords: keywords},
		},
	}
}

func TestCalculateDeltas_FirstScan(t *testing.T) {
	t.Parallel()

	current := &domain.Snapshot{Metrics: domain.Metrics{domain.MetricDomainAuthority: 30}}
	d, err := delta.CalculateDeltas(current, nil, nil)
	require.NoError(t, err)

	assert.False(t, d.HasHistory)
	assert.Empty(t, d.MetricDeltas)
	assert.NotNil(t, d.MetricDeltas)
	assert.Empty(t, d.KeywordDeltas)
}

func TestCalculateDeltas_MetricDeltas(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		metric    domain.MetricName
		previous  float64
		current   float64
		change    float64
		pct       *float64
		direction domain.Direction
	}{
		{"authority drop", domain.MetricDomainAuthority, 40, 25, -15, ptr(-37.5), domain.DirectionDeclined},
		{"from zero has no percent", domain.MetricBacklinks, 0, 12, 12, nil, domain.DirectionImproved},
		{"flat", domain.MetricReviewCount, 50, 50, 0, ptr(0), domain.DirectionFlat},
		{"position up is worse", domain.MetricAveragePosition, 8, 12, 4, ptr(50), domain.DirectionDeclined},
		{"position down is better", domain.MetricAveragePosition, 12, 6, -6, ptr(-50), domain.DirectionImproved},
		{"rating noise is rounded", domain.MetricReviewAverage, 4.3, 4.0, -0.3, ptr(-6.9767), domain.DirectionDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := &domain.Snapshot{Metrics: domain.Metrics{tt.metric: tt.current}}
			d, err := delta.CalculateDeltas(current, nil, previousScan(domain.Metrics{tt.metric: tt.previous}))
			require.NoError(t, err)
			require.True(t, d.HasHistory)

			md, ok := d.Metric(tt.metric)
			require.True(t, ok)
			assert.InDelta(t, tt.change, md.Change, 1e-9)
			assert.Equal(t, tt.direction, md.Direction)
			if tt.pct == nil {
				assert.Nil(t, md.PercentChange)
			} else {
				require.NotNil(t, md.PercentChange)
				assert.InDelta(t, *tt.pct, *md.PercentChange, 1e-3)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestCalculateDeltas_OnlyMetricsPresentInBoth(t *testing.T) {
	t.Parallel()

	current := &domain.Snapshot{Metrics: domain.Metrics{
		domain.MetricDomainAuthority: 30,
		domain.MetricReviewCount:     10,
	}}
	prev := previousScan(domain.Metrics{
		domain.MetricDomainAuthority: 32,
		domain.MetricPageSpeedMobile: 80,
	})

	d, err := delta.CalculateDeltas(current, nil, prev)
	require.NoError(t, err)

	require.Len(t, d.MetricDeltas, 1)
	assert.Equal(t, domain.MetricDomainAuthority, d.MetricDeltas[0].Metric)
}

func TestCalculateDeltas_CompetitorGaps(t *testing.T) {
	t.Parallel()

	current := &domain.Snapshot{Metrics: domain.Metrics{
		domain.MetricDomainAuthority: 30,
		domain.MetricAveragePosition: 5,
	}}
	competitors := []domain.CompetitorSnapshot{
		{
			CompetitorID: "c1",
			Name:         "Rival",
			Snapshot: domain.Snapshot{Metrics: domain.Metrics{
				domain.MetricDomainAuthority: 60,
				domain.MetricAveragePosition: 9,
			}},
		},
		{
			CompetitorID: "c2",
			Name:         "Partial",
			Snapshot:     domain.Snapshot{Metrics: domain.Metrics{}},
		},
	}

	d, err := delta.CalculateDeltas(current, competitors, nil)
	require.NoError(t, err)

	require.Len(t, d.CompetitorGaps, 2, "missing competitor metrics must not produce gaps")

	da := d.CompetitorGaps[0]
	assert.Equal(t, domain.MetricDomainAuthority, da.Metric)
	assert.InDelta(t, -30, da.Gap, 1e-9)
	assert.False(t, da.ClientLeads)

	pos := d.CompetitorGaps[1]
	assert.Equal(t, domain.MetricAveragePosition, pos.Metric)
	assert.InDelta(t, -4, pos.Gap, 1e-9)
	assert.True(t, pos.ClientLeads)
}

func TestCalculateDeltas_KeywordDeltas(t *testing.T) {
	t.Parallel()

	current := &domain.Snapshot{
		Metrics: domain.Metrics{},
		Keywords: []domain.KeywordRanking{
			{Keyword: "plumber", Position: intPtr(5)},
			{Keyword: "drain repair", Position: intPtr(2)},
		},
	}
	prev := previousScan(domain.Metrics{},
		domain.KeywordRanking{Keyword: "plumber", Position: intPtr(2)},
		domain.KeywordRanking{Keyword: "boiler", Position: intPtr(1)},
	)

	d, err := delta.CalculateDeltas(current, nil, prev)
	require.NoError(t, err)
	require.Len(t, d.KeywordDeltas, 3)

	assert.Equal(t, "plumber", d.KeywordDeltas[0].Keyword)
	assert.True(t, d.KeywordDeltas[0].LeftTop3())
	assert.False(t, d.KeywordDeltas[1].LeftTop3())
	assert.Equal(t, "boiler", d.KeywordDeltas[2].Keyword)
	assert.True(t, d.KeywordDeltas[2].LeftTop3())
}

func TestCalculateDeltas_UnavailableRankingsProduceNoKeywordDeltas(t *testing.T) {
	t.Parallel()

	current := &domain.Snapshot{
		Metrics:     domain.Metrics{},
		Unavailable: []domain.Family{domain.FamilyKeywordRankings},
	}
	prev := previousScan(domain.Metrics{}, domain.KeywordRanking{Keyword: "plumber", Position: intPtr(1)})

	d, err := delta.CalculateDeltas(current, nil, prev)
	require.NoError(t, err)
	assert.Empty(t, d.KeywordDeltas)
}

func TestCalculateDeltas_RejectsNaN(t *testing.T) {
	t.Parallel()

	current := &domain.Snapshot{Metrics: domain.Metrics{domain.MetricBacklinks: math.NaN()}}
	_, err := delta.CalculateDeltas(current, nil, nil)
	require.ErrorIs(t, err, delta.ErrInvalidMetric)
}

func TestWithHealth(t *testing.T) {
	t.Parallel()

	var d domain.Deltas
	delta.WithHealth(&d, 55, intPtr(72))

	require.NotNil(t, d.Health)
	assert.Equal(t, 17, d.Health.Drop())
}
