// Package alert turns scan deltas into severity-ranked alerts. It performs
// no I/O.
package alert

import (
	"slices"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// rule evaluates one condition. Trend rules return nothing without history.
type rule func(d *domain.Deltas, client *domain.Snapshot) []domain.Alert

// rules are evaluated in this order; it decides ties during de-duplication.
var rules = []rule{
	healthDrop,
	authorityDrop,
	authorityFloor,
	keywordsLeftTop3,
	averagePositionWorsened,
	pageSpeedRegression,
	pageSpeedFloor,
	reviewAverageDecline,
	reviewCountDrop,
	reviewAverageFloor,
	competitorAuthorityOvertake,
	competitorReviewLead,
}

// GenerateAlerts evaluates every rule. Alerts for the same condition collapse
// to the most severe one, and the result is ordered by severity, most severe
// first, keeping evaluation order among equals.
func GenerateAlerts(deltas *domain.Deltas, client *domain.Snapshot) []domain.Alert {
	var candidates []domain.Alert
	for _, r := range rules {
		candidates = append(candidates, r(deltas, client)...)
	}

	alerts := dedupe(candidates)
	slices.SortStableFunc(alerts, func(a, b domain.Alert) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})

	return alerts
}

func dedupe(candidates []domain.Alert) []domain.Alert {
	out := make([]domain.Alert, 0, len(candidates))
	index := make(map[string]int, len(candidates))

	for i := range candidates {
		a := candidates[i]
		if pos, ok := index[a.Condition]; ok {
			if a.Severity.Rank() > out[pos].Severity.Rank() {
				out[pos] = a
			}
			continue
		}
		index[a.Condition] = len(out)
		out = append(out, a)
	}

	return out
}
