package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// MozCostPerCall is the metered price of one url_metrics row.
const MozCostPerCall = 0.01

// MozAdapter reads domain authority and link counts from the Moz Links API v2.
type MozAdapter struct {
	client    *http.Client
	baseURL   string
	accessID  string
	secretKey string
}

// NewMozAdapter creates a Moz adapter using basic auth credentials.
func NewMozAdapter(client *http.Client, baseURL, accessID, secretKey string) *MozAdapter {
	return &MozAdapter{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessID:  accessID,
		secretKey: secretKey,
	}
}

func (a *MozAdapter) Name() string          { return NameMoz }
func (a *MozAdapter) Family() domain.Family { return domain.FamilyAuthority }
func (a *MozAdapter) Operation() string     { return "url_metrics" }

// CacheKey returns the normalized domain.
func (a *MozAdapter) CacheKey(target domain.Target) (string, error) {
	return domainKey(target)
}

type mozRequest struct {
	Targets []string `json:"targets"`
}

type mozResponse struct {
	Results []struct {
		DomainAuthority           *float64 `json:"domain_authority"`
		ExternalPagesToRootDomain *float64 `json:"external_pages_to_root_domain"`
		RootDomainsToRootDomain   *float64 `json:"root_domains_to_root_domain"`
	} `json:"results"`
}

// Fetch calls POST /v2/url_metrics for the target's root domain.
func (a *MozAdapter) Fetch(ctx context.Context, target domain.Target) (*Result, error) {
	host, err := a.CacheKey(target)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(mozRequest{Targets: []string{host}})
	if err != nil {
		return nil, fmt.Errorf("marshal moz request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/url_metrics", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(a.accessID, a.secretKey)
	req.Header.Set("Content-Type", "application/json")

	var resp mozResponse
	if doErr := do(a.client, req, &resp); doErr != nil {
		return nil, fmt.Errorf("moz url_metrics: %w", doErr)
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}

	row := resp.Results[0]
	metrics := domain.Metrics{}
	setIfPresent(metrics, domain.MetricDomainAuthority, row.DomainAuthority)
	setIfPresent(metrics, domain.MetricBacklinks, row.ExternalPagesToRootDomain)
	setIfPresent(metrics, domain.MetricReferringDomains, row.RootDomainsToRootDomain)

	if len(metrics) == 0 {
		return nil, nil
	}

	return &Result{Metrics: metrics, CostUSD: MozCostPerCall}, nil
}

func setIfPresent(m domain.Metrics, name domain.MetricName, v *float64) {
	if v != nil {
		m[name] = *v
	}
}
