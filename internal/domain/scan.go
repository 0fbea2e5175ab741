package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScanPayload is the raw metric state persisted with a scan.
type ScanPayload struct {
	Client      Snapshot             `json:"client"`
	Competitors []CompetitorSnapshot `json:"competitors"`
}

// Scan is an append-only record of one pipeline execution.
type Scan struct {
	ID                  uuid.UUID   `json:"id"`
	ClientID            string      `json:"client_id"`
	ScanDate            time.Time   `json:"scan_date"`
	HealthScore         int         `json:"health_score"`
	PreviousHealthScore *int        `json:"previous_health_score,omitempty"`
	RawMetrics          ScanPayload `json:"raw_metrics"`
	Deltas              Deltas      `json:"deltas"`
	Alerts              []Alert     `json:"alerts"`
	APICosts            []APICost   `json:"api_costs"`
	TotalCostUSD        float64     `json:"total_cost_usd"`
}

// CacheEntry is a cached provider response.
type CacheEntry struct {
	Provider  string          `json:"provider"`
	CacheKey  string          `json:"cache_key"`
	Data      json.RawMessage `json:"data"`
	CostUSD   float64         `json:"cost_usd"`
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is stale at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// ScanResult summarizes a successful scan.
type ScanResult struct {
	ClientID            string    `json:"client_id"`
	ScanID              uuid.UUID `json:"scan_id"`
	HealthScore         int       `json:"health_score"`
	PreviousHealthScore *int      `json:"previous_health_score,omitempty"`
	AlertCount          int       `json:"alert_count"`
	TasksCreated        int       `json:"tasks_created"`
	TaskError           string    `json:"task_error,omitempty"`
	UnavailableFamilies []Family  `json:"unavailable_families,omitempty"`
	TotalCostUSD        float64   `json:"total_cost_usd"`
}

// ClientScanOutcome is the per-client line of a batch result.
type ClientScanOutcome struct {
	ClientID string      `json:"client_id"`
	Success  bool        `json:"success"`
	Error    string      `json:"error,omitempty"`
	Summary  *ScanResult `json:"summary,omitempty"`
}

// BatchResult reports every client of a batch in input order.
type BatchResult struct {
	Results   []ClientScanOutcome `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}
