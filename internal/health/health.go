// Package health scores a client's competitive standing from 0 to 100.
package health

import (
	"errors"
	"fmt"
	"math"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// FallbackScore is returned when no sub-score can be computed.
const FallbackScore = 50

// ErrInvalidInput is returned when a metric or delta is NaN or infinite.
var ErrInvalidInput = errors.New("invalid health score input")

// Sub-score weights. Missing sub-scores are dropped and the rest renormalized.
const (
	weightPageSpeed = 0.25
	weightAuthority = 0.30
	weightReviews   = 0.20
	weightKeywords  = 0.25
)

const (
	maxScore = 100.0

	authorityTrendFactor = 2.0

	ratingScale        = 5.0
	ratingPoints       = 80.0
	reviewVolumeCap    = 100.0
	reviewVolumePoints = 20.0
	ratingTrendFactor  = 20.0

	// Position 1 scores 100, position 50 scores 0.
	worstTrackedPosition = 50.0
	positionTrendFactor  = 2.0
)

type subScore struct {
	weight float64
	score  func(client *domain.Snapshot, deltas *domain.Deltas) (float64, bool)
}

var subScores = []subScore{
	{weightPageSpeed, pageSpeedScore},
	{weightAuthority, authorityScore},
	{weightReviews, reviewScore},
	{weightKeywords, keywordScore},
}

// CalculateHealthScore returns the weighted mean of the available sub-scores,
// each clamped to [0, 100] first, rounded to an integer.
func CalculateHealthScore(client *domain.Snapshot, deltas *domain.Deltas) (int, error) {
	if err := validate(client, deltas); err != nil {
		return 0, err
	}

	var total, weights float64
	for _, s := range subScores {
		v, ok := s.score(client, deltas)
		if !ok {
			continue
		}
		total += clamp(v) * s.weight
		weights += s.weight
	}

	if weights == 0 {
		return FallbackScore, nil
	}

	return int(math.Round(clamp(total / weights))), nil
}

func validate(client *domain.Snapshot, deltas *domain.Deltas) error {
	for name, v := range client.Metrics {
		if !finite(v) {
			return fmt.Errorf("%w: metric %s = %v", ErrInvalidInput, name, v)
		}
	}
	if deltas == nil {
		return nil
	}
	for _, md := range deltas.MetricDeltas {
		if !finite(md.Change) {
			return fmt.Errorf("%w: change of %s = %v", ErrInvalidInput, md.Metric, md.Change)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(maxScore, v))
}

// change returns the trend of name, or 0 without history.
func change(deltas *domain.Deltas, name domain.MetricName) float64 {
	if deltas == nil || !deltas.HasHistory {
		return 0
	}
	return deltas.Change(name)
}

func pageSpeedScore(client *domain.Snapshot, _ *domain.Deltas) (float64, bool) {
	var sum float64
	var n int
	for _, name := range []domain.MetricName{domain.MetricPageSpeedMobile, domain.MetricPageSpeedDesktop} {
		if v, ok := client.Metrics.Get(name); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func authorityScore(client *domain.Snapshot, deltas *domain.Deltas) (float64, bool) {
	da, ok := client.Metrics.Get(domain.MetricDomainAuthority)
	if !ok {
		return 0, false
	}
	return da + authorityTrendFactor*change(deltas, domain.MetricDomainAuthority), true
}

func reviewScore(client *domain.Snapshot, deltas *domain.Deltas) (float64, bool) {
	rating, ok := client.Metrics.Get(domain.MetricReviewAverage)
	if !ok {
		return 0, false
	}

	count, _ := client.Metrics.Get(domain.MetricReviewCount)
	volume := math.Min(count/reviewVolumeCap, 1) * reviewVolumePoints

	return rating/ratingScale*ratingPoints + volume + ratingTrendFactor*change(deltas, domain.MetricReviewAverage), true
}

func keywordScore(client *domain.Snapshot, deltas *domain.Deltas) (float64, bool) {
	pos, ok := client.Metrics.Get(domain.MetricAveragePosition)
	if !ok {
		return 0, false
	}

	base := maxScore - (pos-1)*maxScore/(worstTrackedPosition-1)
	return base - positionTrendFactor*change(deltas, domain.MetricAveragePosition), true
}
