// Package delta compares a fresh snapshot against the previous scan and
// against each competitor.
package delta

import (
	"errors"
	"fmt"
	"math"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// ErrInvalidMetric is returned for NaN or infinite metric values.
var ErrInvalidMetric = errors.New("invalid metric value")

// precision is the number of decimals kept in changes and gaps, so that
// thresholds such as a 0.3 rating drop are not missed by float noise.
const precision = 1e4

// CalculateDeltas computes metric deltas against previous and gaps against
// each competitor. Without a previous scan the trend parts are empty and
// HasHistory is false.
func CalculateDeltas(
	current *domain.Snapshot, competitors []domain.CompetitorSnapshot, previous *domain.Scan,
) (domain.Deltas, error) {
	if err := validate(current.Metrics); err != nil {
		return domain.Deltas{}, fmt.Errorf("client snapshot: %w", err)
	}
	for i := range competitors {
		if err := validate(competitors[i].Metrics); err != nil {
			return domain.Deltas{}, fmt.Errorf("competitor %s snapshot: %w", competitors[i].CompetitorID, err)
		}
	}

	deltas := domain.Deltas{
		MetricDeltas:   []domain.MetricDelta{},
		KeywordDeltas:  []domain.KeywordDelta{},
		CompetitorGaps: competitorGaps(current.Metrics, competitors),
	}

	if previous == nil {
		return deltas, nil
	}

	prevSnap := &previous.RawMetrics.Client
	if err := validate(prevSnap.Metrics); err != nil {
		return domain.Deltas{}, fmt.Errorf("previous scan %s: %w", previous.ID, err)
	}

	deltas.HasHistory = true
	deltas.MetricDeltas = metricDeltas(current.Metrics, prevSnap.Metrics)
	deltas.KeywordDeltas = keywordDeltas(current, prevSnap)

	return deltas, nil
}

// WithHealth records the health score movement on d.
func WithHealth(d *domain.Deltas, current int, previous *int) {
	d.Health = &domain.HealthChange{Previous: previous, Current: current}
}

func validate(m domain.Metrics) error {
	for name, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidMetric, name, v)
		}
	}
	return nil
}

func metricDeltas(current, previous domain.Metrics) []domain.MetricDelta {
	out := []domain.MetricDelta{}

	for _, def := range domain.MetricDefinitions() {
		cur, curOK := current.Get(def.Name)
		prev, prevOK := previous.Get(def.Name)
		if !curOK || !prevOK {
			continue
		}

		change := round(cur - prev)
		md := domain.MetricDelta{
			Metric:    def.Name,
			Previous:  prev,
			Current:   cur,
			Change:    change,
			Direction: direction(change, def.Polarity),
		}
		if prev != 0 {
			pct := round(change / prev * 100)
			md.PercentChange = &pct
		}
		out = append(out, md)
	}

	return out
}

func direction(change float64, polarity domain.Polarity) domain.Direction {
	switch {
	case change == 0:
		return domain.DirectionFlat
	case (change > 0) == (polarity == domain.HigherIsBetter):
		return domain.DirectionImproved
	default:
		return domain.DirectionDeclined
	}
}

// keywordDeltas pairs positions by keyword. Both snapshots must have ranking
// data; an unavailable family says nothing about positions.
func keywordDeltas(current, previous *domain.Snapshot) []domain.KeywordDelta {
	out := []domain.KeywordDelta{}
	if current.IsUnavailable(domain.FamilyKeywordRankings) || previous.IsUnavailable(domain.FamilyKeywordRankings) {
		return out
	}

	prevPos := make(map[string]*int, len(previous.Keywords))
	for _, kr := range previous.Keywords {
		prevPos[kr.Keyword] = kr.Position
	}

	seen := make(map[string]bool, len(current.Keywords))
	for _, kr := range current.Keywords {
		seen[kr.Keyword] = true
		out = append(out, domain.KeywordDelta{
			Keyword:          kr.Keyword,
			PreviousPosition: prevPos[kr.Keyword],
			CurrentPosition:  kr.Position,
		})
	}

	// Keywords that vanished from the ranking data no longer rank.
	for _, kr := range previous.Keywords {
		if seen[kr.Keyword] {
			continue
		}
		out = append(out, domain.KeywordDelta{
			Keyword:          kr.Keyword,
			PreviousPosition: kr.Position,
		})
	}

	return out
}

func competitorGaps(client domain.Metrics, competitors []domain.CompetitorSnapshot) []domain.CompetitorGap {
	out := []domain.CompetitorGap{}

	for i := range competitors {
		comp := &competitors[i]
		for _, def := range domain.MetricDefinitions() {
			clientValue, clientOK := client.Get(def.Name)
			compValue, compOK := comp.Metrics.Get(def.Name)
			if !clientOK || !compOK {
				continue
			}

			gap := round(clientValue - compValue)
			leads := gap > 0
			if def.Polarity == domain.LowerIsBetter {
				leads = gap < 0
			}

			out = append(out, domain.CompetitorGap{
				CompetitorID:    comp.CompetitorID,
				CompetitorName:  comp.Name,
				Metric:          def.Name,
				ClientValue:     clientValue,
				CompetitorValue: compValue,
				Gap:             gap,
				ClientLeads:     leads,
			})
		}
	}

	return out
}

func round(v float64) float64 {
	return math.Round(v*precision) / precision
}
