package domain_test

import (
	"testing"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestKeywordDelta_LeftTop3(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		delta domain.KeywordDelta
		want  bool
	}{
		{name: "dropped to page one", delta: domain.KeywordDelta{PreviousPosition: intPtr(2), CurrentPosition: intPtr(7)}, want: true},
		{name: "stopped ranking", delta: domain.KeywordDelta{PreviousPosition: intPtr(3)}, want: true},
		{name: "stayed in top 3", delta: domain.KeywordDelta{PreviousPosition: intPtr(1), CurrentPosition: intPtr(3)}, want: false},
		{name: "never in top 3", delta: domain.KeywordDelta{PreviousPosition: intPtr(8), CurrentPosition: intPtr(12)}, want: false},
		{name: "new keyword", delta: domain.KeywordDelta{CurrentPosition: intPtr(9)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.delta.LeftTop3(); got != tt.want {
				t.Errorf("LeftTop3() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthChange_Drop(t *testing.T) {
	t.Parallel()

	var nilChange *domain.HealthChange
	if got := nilChange.Drop(); got != 0 {
		t.Errorf("nil Drop() = %d, want 0", got)
	}
	if got := (&domain.HealthChange{Current: 40}).Drop(); got != 0 {
		t.Errorf("no history Drop() = %d, want 0", got)
	}
	if got := (&domain.HealthChange{Previous: intPtr(72), Current: 50}).Drop(); got != 22 {
		t.Errorf("Drop() = %d, want 22", got)
	}
	if got := (&domain.HealthChange{Previous: intPtr(50), Current: 60}).Drop(); got != 0 {
		t.Errorf("rise Drop() = %d, want 0", got)
	}
}

func TestHitRate_ZeroCalls(t *testing.T) {
	t.Parallel()

	if got := domain.HitRate(0, 0); got != 0 {
		t.Errorf("HitRate(0, 0) = %v, want 0", got)
	}
	if got := domain.HitRate(3, 4); got != 0.75 {
		t.Errorf("HitRate(3, 4) = %v, want 0.75", got)
	}
}

func TestMetrics_AbsentIsNotZero(t *testing.T) {
	t.Parallel()

	m := domain.Metrics{domain.MetricBacklinks: 0}
	if _, ok := m.Get(domain.MetricBacklinks); !ok {
		t.Error("explicit zero must be known")
	}
	if _, ok := m.Get(domain.MetricDomainAuthority); ok {
		t.Error("absent metric must be unknown")
	}

	var empty domain.Metrics
	if _, ok := empty.Get(domain.MetricBacklinks); ok {
		t.Error("nil Metrics must report unknown")
	}
}

func TestDefinition_Polarity(t *testing.T) {
	t.Parallel()

	def, ok := domain.Definition(domain.MetricAveragePosition)
	if !ok || def.Polarity != domain.LowerIsBetter {
		t.Errorf("average_position definition = %+v, %v", def, ok)
	}
	for _, d := range domain.MetricDefinitions() {
		if d.Name != domain.MetricAveragePosition && d.Polarity != domain.HigherIsBetter {
			t.Errorf("%s polarity = %v, want HigherIsBetter", d.Name, d.Polarity)
		}
	}
}
