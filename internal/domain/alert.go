package domain

// AlertType is the fixed set of alert kinds a scan can raise.
type AlertType string

const (
	AlertHealthDrop         AlertType = "health_drop"
	AlertAuthorityDrop      AlertType = "authority_drop"
	AlertRankingDrop        AlertType = "ranking_drop"
	AlertCompetitorOvertake AlertType = "competitor_overtake"
	AlertSpeedRegression    AlertType = "speed_regression"
	AlertReviewDecline      AlertType = "review_decline"
)

// Severity of an alert. Rank gives the strict order info < warning < critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal of s; unknown severities rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Alert is a notice that a delta or an absolute value crossed a threshold.
// Condition names the root cause; two alerts with the same Condition describe
// the same breach.
type Alert struct {
	Type          AlertType       `json:"type"`
	Severity      Severity        `json:"severity"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Metric        string          `json:"metric"`
	Condition     string          `json:"condition"`
	SuggestedTask *TaskSuggestion `json:"suggested_task,omitempty"`
}

// Actionable reports whether the alert should become a task.
func (a *Alert) Actionable() bool {
	return a.SuggestedTask != nil
}
