package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jonesrussell/competitive-scan/infrastructure/retry"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// DataForSEO status codes.
const (
	dataForSEOStatusOK           = 20000
	dataForSEOStatusUnauthorized = 40100
	dataForSEOStatusNoResults    = 40102
	dataForSEOStatusPayment      = 40200
	// 50000-range codes are internal errors on the vendor side.
	dataForSEOStatusServerErrorMin = 50000
)

const (
	dataForSEOResultLimit = 1000
	keywordHashLen        = 12
	// worstTrackedPosition stands in for a tracked keyword outside the top 100.
	worstTrackedPosition = 100
)

// DataForSEOAdapter reads organic keyword rankings from DataForSEO Labs.
type DataForSEOAdapter struct {
	client       *http.Client
	baseURL      string
	login        string
	password     string
	locationCode int
	languageCode string
}

// NewDataForSEOAdapter creates a DataForSEO adapter.
func NewDataForSEOAdapter(
	client *http.Client, baseURL, login, password string, locationCode int, languageCode string,
) *DataForSEOAdapter {
	return &DataForSEOAdapter{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		login:        login,
		password:     password,
		locationCode: locationCode,
		languageCode: languageCode,
	}
}

func (a *DataForSEOAdapter) Name() string          { return NameDataForSEO }
func (a *DataForSEOAdapter) Family() domain.Family { return domain.FamilyKeywordRankings }
func (a *DataForSEOAdapter) Operation() string     { return "ranked_keywords" }

// CacheKey is the normalized domain plus a hash of the sorted tracked keywords,
// so a changed keyword list misses the cache.
func (a *DataForSEOAdapter) CacheKey(target domain.Target) (string, error) {
	host, err := domainKey(target)
	if err != nil {
		return "", err
	}

	keywords := normalizeKeywords(target.Keywords)
	if len(keywords) == 0 {
		return host, nil
	}

	sum := sha256.Sum256([]byte(strings.Join(keywords, "\n")))
	return host + ":kw:" + hex.EncodeToString(sum[:])[:keywordHashLen], nil
}

// foldKeyword makes keywords that differ only in case or spacing compare
// equal. Case folding also matches forms like "STRASSE" and "straße".
func foldKeyword(kw string) string {
	return cases.Fold().String(strings.Join(strings.Fields(kw), " "))
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = foldKeyword(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type dataForSEOTask struct {
	Target       string `json:"target"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit"`
}

type dataForSEOResponse struct {
	StatusCode    int     `json:"status_code"`
	StatusMessage string  `json:"status_message"`
	Cost          float64 `json:"cost"`
	Tasks         []struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
		Result        []struct {
			Metrics struct {
				Organic *struct {
					Pos1    float64 `json:"pos_1"`
					Pos2To3 float64 `json:"pos_2_3"`
					Count   float64 `json:"count"`
					ETV     float64 `json:"etv"`
				} `json:"organic"`
			} `json:"metrics"`
			Items []struct {
				KeywordData struct {
					Keyword string `json:"keyword"`
				} `json:"keyword_data"`
				RankedSerpElement struct {
					SerpItem struct {
						RankGroup int `json:"rank_group"`
					} `json:"serp_item"`
				} `json:"ranked_serp_element"`
			} `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

// Fetch calls POST /v3/dataforseo_labs/google/ranked_keywords/live. The cost is
// taken from the response.
func (a *DataForSEOAdapter) Fetch(ctx context.Context, target domain.Target) (*Result, error) {
	host, err := domainKey(target)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal([]dataForSEOTask{{
		Target:       host,
		LocationCode: a.locationCode,
		LanguageCode: a.languageCode,
		Limit:        dataForSEOResultLimit,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal dataforseo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v3/dataforseo_labs/google/ranked_keywords/live", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(a.login, a.password)
	req.Header.Set("Content-Type", "application/json")

	var resp dataForSEOResponse
	if doErr := do(a.client, req, &resp); doErr != nil {
		return nil, fmt.Errorf("dataforseo ranked_keywords: %w", doErr)
	}

	if statusErr := dataForSEOStatus(resp.StatusCode, resp.StatusMessage); statusErr != nil {
		return nil, statusErr
	}
	if len(resp.Tasks) == 0 {
		return nil, nil
	}

	task := resp.Tasks[0]
	if task.StatusCode == dataForSEOStatusNoResults {
		return nil, nil
	}
	if statusErr := dataForSEOStatus(task.StatusCode, task.StatusMessage); statusErr != nil {
		return nil, statusErr
	}
	if len(task.Result) == 0 || task.Result[0].Metrics.Organic == nil {
		return nil, nil
	}

	res := task.Result[0]
	organic := res.Metrics.Organic
	metrics := domain.Metrics{
		domain.MetricOrganicKeywords: organic.Count,
		domain.MetricOrganicTraffic:  math.Round(organic.ETV),
		domain.MetricTop3Keywords:    organic.Pos1 + organic.Pos2To3,
	}

	ranked := make(map[string]int, len(res.Items))
	for _, item := range res.Items {
		kw := foldKeyword(item.KeywordData.Keyword)
		pos := item.RankedSerpElement.SerpItem.RankGroup
		if kw == "" || pos <= 0 {
			continue
		}
		if prev, ok := ranked[kw]; !ok || pos < prev {
			ranked[kw] = pos
		}
	}

	keywords, avg := trackedPositions(target.Keywords, ranked)
	if avg != nil {
		metrics[domain.MetricAveragePosition] = *avg
	}

	return &Result{Metrics: metrics, Keywords: keywords, CostUSD: resp.Cost}, nil
}

// trackedPositions maps tracked keywords to their positions. The average
// position is taken over every tracked keyword, counting one that does not
// rank at worstTrackedPosition, or over every ranked keyword when none are
// tracked.
func trackedPositions(tracked []string, ranked map[string]int) ([]domain.KeywordRanking, *float64) {
	var sum, n int

	keywords := make([]domain.KeywordRanking, 0, len(tracked))
	for _, kw := range tracked {
		kr := domain.KeywordRanking{Keyword: kw}
		pos, ok := ranked[foldKeyword(kw)]
		if ok {
			kr.Position = &pos
		} else {
			pos = worstTrackedPosition
		}
		sum += pos
		n++
		keywords = append(keywords, kr)
	}

	if len(tracked) == 0 {
		for _, pos := range ranked {
			sum += pos
			n++
		}
	}

	if n == 0 {
		return keywords, nil
	}

	avg := math.Round(float64(sum)/float64(n)*10) / 10
	return keywords, &avg
}

func dataForSEOStatus(code int, message string) error {
	switch {
	case code == dataForSEOStatusOK:
		return nil
	case code == dataForSEOStatusUnauthorized || code == dataForSEOStatusPayment:
		return fmt.Errorf("dataforseo: %w: %d %s", ErrUnauthorized, code, message)
	case code >= dataForSEOStatusServerErrorMin:
		return retry.Transient(fmt.Errorf("dataforseo: status %d %s", code, message))
	default:
		return fmt.Errorf("dataforseo: status %d %s", code, message)
	}
}
