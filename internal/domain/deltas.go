package domain

// Direction classifies a metric change relative to the metric's polarity.
type Direction string

const (
	DirectionImproved Direction = "improved"
	DirectionDeclined Direction = "declined"
	DirectionFlat     Direction = "flat"
)

// MetricDelta is the change of one metric against the previous scan.
// PercentChange is nil when the previous value was zero.
type MetricDelta struct {
	Metric        MetricName `json:"metric"`
	Previous      float64    `json:"previous"`
	Current       float64    `json:"current"`
	Change        float64    `json:"change"`
	PercentChange *float64   `json:"percent_change,omitempty"`
	Direction     Direction  `json:"direction"`
}

// KeywordDelta pairs the previous and current position of a tracked keyword.
type KeywordDelta struct {
	Keyword          string `json:"keyword"`
	PreviousPosition *int   `json:"previous_position,omitempty"`
	CurrentPosition  *int   `json:"current_position,omitempty"`
}

// LeftTop3 reports whether the keyword ranked in the top 3 before and does not now.
func (k KeywordDelta) LeftTop3() bool {
	if k.PreviousPosition == nil || *k.PreviousPosition > 3 {
		return false
	}
	return k.CurrentPosition == nil || *k.CurrentPosition > 3
}

// CompetitorGap compares one client metric to one competitor.
// Gap is client minus competitor; ClientLeads respects the metric polarity.
type CompetitorGap struct {
	CompetitorID    string     `json:"competitor_id"`
	CompetitorName  string     `json:"competitor_name"`
	Metric          MetricName `json:"metric"`
	ClientValue     float64    `json:"client_value"`
	CompetitorValue float64    `json:"competitor_value"`
	Gap             float64    `json:"gap"`
	ClientLeads     bool       `json:"client_leads"`
}

// HealthChange records the health score movement for this scan.
type HealthChange struct {
	Previous *int `json:"previous,omitempty"`
	Current  int  `json:"current"`
}

// Drop returns how many points the score fell, or 0 without history or on a rise.
func (h *HealthChange) Drop() int {
	if h == nil || h.Previous == nil || *h.Previous <= h.Current {
		return 0
	}
	return *h.Previous - h.Current
}

// Deltas aggregates every comparison computed for one scan.
type Deltas struct {
	MetricDeltas   []MetricDelta   `json:"metric_deltas"`
	KeywordDeltas  []KeywordDelta  `json:"keyword_deltas"`
	CompetitorGaps []CompetitorGap `json:"competitor_gaps"`
	Health         *HealthChange   `json:"health,omitempty"`
	HasHistory     bool            `json:"has_history"`
}

// Metric returns the delta for name, if one was computed.
func (d *Deltas) Metric(name MetricName) (MetricDelta, bool) {
	for _, md := range d.MetricDeltas {
		if md.Metric == name {
			return md, true
		}
	}
	return MetricDelta{}, false
}

// Change returns the signed change for name, or 0 when there is no delta.
func (d *Deltas) Change(name MetricName) float64 {
	md, ok := d.Metric(name)
	if !ok {
		return 0
	}
	return md.Change
}
