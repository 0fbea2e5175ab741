package alert

import (
	"fmt"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// Thresholds. They are constants so an alert always means the same thing.
const (
	healthDropWarning  = 10
	healthDropCritical = 20

	authorityDropWarning  = -5.0
	authorityDropCritical = -10.0
	authorityMin          = 10.0

	averagePositionWorsening = 5.0

	speedRegression    = -15.0
	speedFloorWarning  = 50.0
	speedFloorCritical = 25.0

	reviewAverageDrop = -0.3
	reviewAverageMin  = 3.5

	competitorAuthorityLead  = 25.0
	competitorReviewMultiple = 2.0
	competitorReviewMinLead  = 20.0

	top3Position = 3
)

const (
	conditionHealth          = "health_score"
	conditionAuthority       = string(domain.MetricDomainAuthority)
	conditionAveragePosition = string(domain.MetricAveragePosition)
	conditionReviewAverage   = string(domain.MetricReviewAverage)
	conditionReviewCount     = string(domain.MetricReviewCount)
)

func keywordCondition(keyword string) string {
	return "keyword:" + keyword
}

func competitorCondition(competitorID string, metric domain.MetricName) string {
	return "competitor:" + competitorID + ":" + string(metric)
}

// trendChange returns the change of name against the previous scan.
func trendChange(d *domain.Deltas, name domain.MetricName) (domain.MetricDelta, bool) {
	if !d.HasHistory {
		return domain.MetricDelta{}, false
	}
	return d.Metric(name)
}

func healthDrop(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	if !d.HasHistory {
		return nil
	}

	drop := d.Health.Drop()
	var severity domain.Severity
	switch {
	case drop >= healthDropCritical:
		severity = domain.SeverityCritical
	case drop >= healthDropWarning:
		severity = domain.SeverityWarning
	default:
		return nil
	}

	return []domain.Alert{{
		Type:        domain.AlertHealthDrop,
		Severity:    severity,
		Title:       fmt.Sprintf("Health score dropped %d points", drop),
		Description: fmt.Sprintf("Health score fell from %d to %d since the last scan.", *d.Health.Previous, d.Health.Current),
		Metric:      conditionHealth,
		Condition:   conditionHealth,
	}}
}

func backlinkAuditTask(priority string, authority float64) *domain.TaskSuggestion {
	return &domain.TaskSuggestion{
		Title:    "Backlink recovery audit",
		Category: domain.TaskCategorySEO,
		Priority: priority,
		ContentBrief: map[string]any{
			"domain_authority": authority,
			"steps":            []string{"review lost referring domains", "disavow toxic links", "reclaim broken backlinks"},
		},
	}
}

func authorityDrop(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	md, ok := trendChange(d, domain.MetricDomainAuthority)
	if !ok || md.Change > authorityDropWarning {
		return nil
	}

	severity, priority := domain.SeverityWarning, domain.TaskPriorityHigh
	if md.Change <= authorityDropCritical {
		severity, priority = domain.SeverityCritical, domain.TaskPriorityUrgent
	}

	return []domain.Alert{{
		Type:     domain.AlertAuthorityDrop,
		Severity: severity,
		Title:    fmt.Sprintf("Domain authority fell %.0f points", -md.Change),
		Description: fmt.Sprintf("Domain authority dropped from %.0f to %.0f. Lost backlinks are the usual cause.",
			md.Previous, md.Current),
		Metric:        conditionAuthority,
		Condition:     conditionAuthority,
		SuggestedTask: backlinkAuditTask(priority, md.Current),
	}}
}

func authorityFloor(_ *domain.Deltas, client *domain.Snapshot) []domain.Alert {
	da, ok := client.Metrics.Get(domain.MetricDomainAuthority)
	if !ok || da >= authorityMin {
		return nil
	}

	return []domain.Alert{{
		Type:          domain.AlertAuthorityDrop,
		Severity:      domain.SeverityWarning,
		Title:         "Domain authority is very low",
		Description:   fmt.Sprintf("Domain authority is %.0f, below the floor of %.0f.", da, authorityMin),
		Metric:        conditionAuthority,
		Condition:     conditionAuthority,
		SuggestedTask: backlinkAuditTask(domain.TaskPriorityHigh, da),
	}}
}

func keywordsLeftTop3(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	if !d.HasHistory {
		return nil
	}

	var out []domain.Alert
	for _, kd := range d.KeywordDeltas {
		if !kd.LeftTop3() {
			continue
		}

		now := "no longer ranks"
		brief := map[string]any{
			"keyword":           kd.Keyword,
			"previous_position": *kd.PreviousPosition,
			"goal":              fmt.Sprintf("regain a top %d position", top3Position),
		}
		if kd.CurrentPosition != nil {
			now = fmt.Sprintf("now ranks #%d", *kd.CurrentPosition)
			brief["current_position"] = *kd.CurrentPosition
		}

		out = append(out, domain.Alert{
			Type:        domain.AlertRankingDrop,
			Severity:    domain.SeverityWarning,
			Title:       fmt.Sprintf("%q dropped out of the top %d", kd.Keyword, top3Position),
			Description: fmt.Sprintf("%q ranked #%d and %s.", kd.Keyword, *kd.PreviousPosition, now),
			Metric:      "keyword_position",
			Condition:   keywordCondition(kd.Keyword),
			SuggestedTask: &domain.TaskSuggestion{
				Title:        fmt.Sprintf("Refresh content for %q", kd.Keyword),
				Category:     domain.TaskCategoryContent,
				Priority:     domain.TaskPriorityMedium,
				ContentBrief: brief,
			},
		})
	}

	return out
}

func averagePositionWorsened(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	md, ok := trendChange(d, domain.MetricAveragePosition)
	if !ok || md.Change < averagePositionWorsening {
		return nil
	}

	return []domain.Alert{{
		Type:        domain.AlertRankingDrop,
		Severity:    domain.SeverityWarning,
		Title:       "Average keyword position worsened",
		Description: fmt.Sprintf("Average position moved from %.1f to %.1f.", md.Previous, md.Current),
		Metric:      conditionAveragePosition,
		Condition:   conditionAveragePosition,
	}}
}

var speedMetrics = []struct {
	metric   domain.MetricName
	strategy string
}{
	{domain.MetricPageSpeedMobile, "mobile"},
	{domain.MetricPageSpeedDesktop, "desktop"},
}

func speedTask(strategy, priority string, score float64) *domain.TaskSuggestion {
	return &domain.TaskSuggestion{
		Title:    fmt.Sprintf("Improve %s page speed", strategy),
		Category: domain.TaskCategoryTechnical,
		Priority: priority,
		ContentBrief: map[string]any{
			"strategy": strategy,
			"score":    score,
		},
	}
}

func pageSpeedRegression(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, sm := range speedMetrics {
		md, ok := trendChange(d, sm.metric)
		if !ok || md.Change > speedRegression {
			continue
		}

		out = append(out, domain.Alert{
			Type:          domain.AlertSpeedRegression,
			Severity:      domain.SeverityWarning,
			Title:         fmt.Sprintf("%s page speed regressed", sm.strategy),
			Description:   fmt.Sprintf("The %s PageSpeed score fell from %.0f to %.0f.", sm.strategy, md.Previous, md.Current),
			Metric:        string(sm.metric),
			Condition:     string(sm.metric),
			SuggestedTask: speedTask(sm.strategy, domain.TaskPriorityMedium, md.Current),
		})
	}
	return out
}

func pageSpeedFloor(_ *domain.Deltas, client *domain.Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, sm := range speedMetrics {
		score, ok := client.Metrics.Get(sm.metric)
		if !ok || score >= speedFloorWarning {
			continue
		}

		severity, priority := domain.SeverityWarning, domain.TaskPriorityMedium
		if score < speedFloorCritical {
			severity, priority = domain.SeverityCritical, domain.TaskPriorityHigh
		}

		out = append(out, domain.Alert{
			Type:          domain.AlertSpeedRegression,
			Severity:      severity,
			Title:         fmt.Sprintf("%s page speed below %.0f", sm.strategy, speedFloorWarning),
			Description:   fmt.Sprintf("The %s PageSpeed score is %.0f.", sm.strategy, score),
			Metric:        string(sm.metric),
			Condition:     string(sm.metric),
			SuggestedTask: speedTask(sm.strategy, priority, score),
		})
	}
	return out
}

func reviewTask(rating float64) *domain.TaskSuggestion {
	return &domain.TaskSuggestion{
		Title:    "Run a review generation campaign",
		Category: domain.TaskCategoryReputation,
		Priority: domain.TaskPriorityMedium,
		ContentBrief: map[string]any{
			"review_average": rating,
		},
	}
}

func reviewAverageDecline(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	md, ok := trendChange(d, domain.MetricReviewAverage)
	if !ok || md.Change > reviewAverageDrop {
		return nil
	}

	return []domain.Alert{{
		Type:          domain.AlertReviewDecline,
		Severity:      domain.SeverityWarning,
		Title:         "Review rating declined",
		Description:   fmt.Sprintf("Average rating fell from %.1f to %.1f.", md.Previous, md.Current),
		Metric:        conditionReviewAverage,
		Condition:     conditionReviewAverage,
		SuggestedTask: reviewTask(md.Current),
	}}
}

func reviewCountDrop(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	md, ok := trendChange(d, domain.MetricReviewCount)
	if !ok || md.Change >= 0 {
		return nil
	}

	return []domain.Alert{{
		Type:        domain.AlertReviewDecline,
		Severity:    domain.SeverityInfo,
		Title:       "Review count decreased",
		Description: fmt.Sprintf("Review count went from %.0f to %.0f; reviews may have been removed.", md.Previous, md.Current),
		Metric:      conditionReviewCount,
		Condition:   conditionReviewCount,
	}}
}

func reviewAverageFloor(_ *domain.Deltas, client *domain.Snapshot) []domain.Alert {
	rating, ok := client.Metrics.Get(domain.MetricReviewAverage)
	if !ok || rating >= reviewAverageMin {
		return nil
	}

	return []domain.Alert{{
		Type:          domain.AlertReviewDecline,
		Severity:      domain.SeverityWarning,
		Title:         fmt.Sprintf("Review rating below %.1f", reviewAverageMin),
		Description:   fmt.Sprintf("Average rating is %.1f.", rating),
		Metric:        conditionReviewAverage,
		Condition:     conditionReviewAverage,
		SuggestedTask: reviewTask(rating),
	}}
}

func competitorAuthorityOvertake(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, gap := range d.CompetitorGaps {
		if gap.Metric != domain.MetricDomainAuthority || -gap.Gap <= competitorAuthorityLead {
			continue
		}

		out = append(out, domain.Alert{
			Type:     domain.AlertCompetitorOvertake,
			Severity: domain.SeverityWarning,
			Title:    fmt.Sprintf("%s leads on domain authority", gap.CompetitorName),
			Description: fmt.Sprintf("%s has domain authority %.0f against your %.0f.",
				gap.CompetitorName, gap.CompetitorValue, gap.ClientValue),
			Metric:    string(domain.MetricDomainAuthority),
			Condition: competitorCondition(gap.CompetitorID, domain.MetricDomainAuthority),
			SuggestedTask: &domain.TaskSuggestion{
				Title:    fmt.Sprintf("Backlink gap analysis against %s", gap.CompetitorName),
				Category: domain.TaskCategorySEO,
				Priority: domain.TaskPriorityMedium,
				ContentBrief: map[string]any{
					"competitor":       gap.CompetitorName,
					"competitor_id":    gap.CompetitorID,
					"authority_gap":    -gap.Gap,
					"client_authority": gap.ClientValue,
				},
			},
		})
	}
	return out
}

func competitorReviewLead(d *domain.Deltas, _ *domain.Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, gap := range d.CompetitorGaps {
		if gap.Metric != domain.MetricReviewCount {
			continue
		}
		if gap.CompetitorValue < competitorReviewMultiple*gap.ClientValue ||
			gap.CompetitorValue-gap.ClientValue < competitorReviewMinLead {
			continue
		}

		out = append(out, domain.Alert{
			Type:     domain.AlertCompetitorOvertake,
			Severity: domain.SeverityInfo,
			Title:    fmt.Sprintf("%s has far more reviews", gap.CompetitorName),
			Description: fmt.Sprintf("%s has %.0f reviews against your %.0f.",
				gap.CompetitorName, gap.CompetitorValue, gap.ClientValue),
			Metric:    string(domain.MetricReviewCount),
			Condition: competitorCondition(gap.CompetitorID, domain.MetricReviewCount),
		})
	}
	return out
}
