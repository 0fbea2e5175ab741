// Package domain contains the core models of the competitive scan engine.
package domain

// MetricName identifies one normalized metric collected from a provider.
type MetricName string

const (
	MetricDomainAuthority  MetricName = "domain_authority"
	MetricBacklinks        MetricName = "backlinks"
	MetricReferringDomains MetricName = "referring_domains"
	MetricOrganicKeywords  MetricName = "organic_keywords"
	MetricOrganicTraffic   MetricName = "organic_traffic"
	MetricAveragePosition  MetricName = "average_position"
	MetricTop3Keywords     MetricName = "top3_keywords"
	MetricReviewCount      MetricName = "review_count"
	MetricReviewAverage    MetricName = "review_average"
	MetricPageSpeedMobile  MetricName = "page_speed_mobile"
	MetricPageSpeedDesktop MetricName = "page_speed_desktop"
)

// Family groups the metrics that one provider call produces.
type Family string

const (
	FamilyAuthority       Family = "authority"
	FamilyBusinessListing Family = "business_listing"
	FamilyPageSpeed       Family = "page_speed"
	FamilyKeywordRankings Family = "keyword_rankings"
)

// familyCount is the number of metric families (used for pre-allocation).
const familyCount = 4

// AllFamilies returns every metric family in fetch order.
func AllFamilies() []Family {
	families := make([]Family, 0, familyCount)
	families = append(families, FamilyAuthority, FamilyBusinessListing, FamilyPageSpeed, FamilyKeywordRankings)
	return families
}

// Polarity says which direction of change counts as an improvement.
type Polarity int

const (
	HigherIsBetter Polarity = iota
	LowerIsBetter
)

// MetricDefinition is the static description of a metric.
type MetricDefinition struct {
	Name     MetricName
	Family   Family
	Polarity Polarity
}

// metricDefinitions is ordered; delta and gap output follows this order.
var metricDefinitions = []MetricDefinition{
	{Name: MetricDomainAuthority, Family: FamilyAuthority, Polarity: HigherIsBetter},
	{Name: MetricBacklinks, Family: FamilyAuthority, Polarity: HigherIsBetter},
	{Name: MetricReferringDomains, Family: FamilyAuthority, Polarity: HigherIsBetter},
	{Name: MetricReviewCount, Family: FamilyBusinessListing, Polarity: HigherIsBetter},
	{Name: MetricReviewAverage, Family: FamilyBusinessListing, Polarity: HigherIsBetter},
	{Name: MetricPageSpeedMobile, Family: FamilyPageSpeed, Polarity: HigherIsBetter},
	{Name: MetricPageSpeedDesktop, Family: FamilyPageSpeed, Polarity: HigherIsBetter},
	{Name: MetricOrganicKeywords, Family: FamilyKeywordRankings, Polarity: HigherIsBetter},
	{Name: MetricOrganicTraffic, Family: FamilyKeywordRankings, Polarity: HigherIsBetter},
	{Name: MetricAveragePosition, Family: FamilyKeywordRankings, Polarity: LowerIsBetter},
	{Name: MetricTop3Keywords, Family: FamilyKeywordRankings, Polarity: HigherIsBetter},
}

// MetricDefinitions returns all known metrics in their canonical order.
func MetricDefinitions() []MetricDefinition {
	out := make([]MetricDefinition, len(metricDefinitions))
	copy(out, metricDefinitions)
	return out
}

// Definition looks up a metric by name.
func Definition(name MetricName) (MetricDefinition, bool) {
	for _, def := range metricDefinitions {
		if def.Name == name {
			return def, true
		}
	}
	return MetricDefinition{}, false
}

// Metrics holds normalized metric values. A missing key means the value is
// unknown; it is never the same as zero.
type Metrics map[MetricName]float64

// Get returns the value of name and whether it is known.
func (m Metrics) Get(name MetricName) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[name]
	return v, ok
}

// Merge copies every value from other into m, allocating m if needed.
func (m Metrics) Merge(other Metrics) Metrics {
	if m == nil {
		m = make(Metrics, len(other))
	}
	for k, v := range other {
		m[k] = v
	}
	return m
}
