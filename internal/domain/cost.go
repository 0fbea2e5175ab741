package domain

import "time"

// APICost is one provider call attributed to a scan.
type APICost struct {
	Provider  string  `json:"provider"`
	Operation string  `json:"operation"`
	CostUSD   float64 `json:"cost_usd"`
	CacheHit  bool    `json:"cache_hit"`
}

// CallLog is one row of the provider call ledger.
type CallLog struct {
	Provider  string
	Operation string
	ClientID  *string
	CacheHit  bool
	CostUSD   float64
	LatencyMs *int64
	Success   bool
	ErrorMsg  *string
	CreatedAt time.Time
}

// ProviderCostStat aggregates the ledger for one provider.
type ProviderCostStat struct {
	Provider     string  `db:"provider"       json:"provider"`
	TotalCalls   int64   `db:"total_calls"    json:"total_calls"`
	CacheHits    int64   `db:"cache_hits"     json:"cache_hits"`
	Failures     int64   `db:"failures"       json:"failures"`
	TotalCostUSD float64 `db:"total_cost_usd" json:"total_cost_usd"`
	CacheHitRate float64 `db:"-"              json:"cache_hit_rate"`
}

// CostSummary aggregates the ledger over a time window.
type CostSummary struct {
	ClientID     *string            `json:"client_id,omitempty"`
	Since        time.Time          `json:"since"`
	Providers    []ProviderCostStat `json:"providers"`
	TotalCalls   int64              `json:"total_calls"`
	CacheHits    int64              `json:"cache_hits"`
	TotalCostUSD float64            `json:"total_cost_usd"`
	CacheHitRate float64            `json:"cache_hit_rate"`
}

// HitRate returns hits/total, defined as 0 when total is 0.
func HitRate(hits, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
