package domain

import (
	"slices"
	"time"
)

// Target is what a provider is asked about: a website, a business listing and
// the keywords tracked for it.
type Target struct {
	Domain   string   `json:"domain"`
	PlaceID  string   `json:"place_id,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// KeywordRanking is the organic position of one tracked keyword. Position is
// nil when the site does not rank for the keyword.
type KeywordRanking struct {
	Keyword  string `json:"keyword"`
	Position *int   `json:"position,omitempty"`
}

// Snapshot is the metric state of one site at fetch time.
type Snapshot struct {
	Target      Target           `json:"target"`
	Metrics     Metrics          `json:"metrics"`
	Keywords    []KeywordRanking `json:"keywords,omitempty"`
	Unavailable []Family         `json:"unavailable,omitempty"`
	FetchedAt   time.Time        `json:"fetched_at"`
}

// IsUnavailable reports whether the family failed to fetch.
func (s *Snapshot) IsUnavailable(f Family) bool {
	return slices.Contains(s.Unavailable, f)
}

// KeywordPosition returns the ranking position of keyword, if it ranks.
func (s *Snapshot) KeywordPosition(keyword string) (int, bool) {
	for _, kr := range s.Keywords {
		if kr.Keyword == keyword && kr.Position != nil {
			return *kr.Position, true
		}
	}
	return 0, false
}

// CompetitorSnapshot is a Snapshot of one configured competitor.
type CompetitorSnapshot struct {
	CompetitorID string `json:"competitor_id"`
	Name         string `json:"name"`
	Priority     int    `json:"priority"`
	Snapshot
}

// ScanData is everything the fetch stage produces for one client.
type ScanData struct {
	Client      Snapshot             `json:"client"`
	Competitors []CompetitorSnapshot `json:"competitors"`
	APICosts    []APICost            `json:"api_costs"`
}

// Payload returns the metric part of the scan data as persisted in raw_metrics.
func (d *ScanData) Payload() ScanPayload {
	return ScanPayload{Client: d.Client, Competitors: d.Competitors}
}

// TotalCostUSD sums every recorded provider cost.
func (d *ScanData) TotalCostUSD() float64 {
	var total float64
	for _, c := range d.APICosts {
		total += c.CostUSD
	}
	return total
}
