package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// PageSpeed strategies, each mapped to its metric.
var pageSpeedStrategies = []struct {
	name   string
	metric domain.MetricName
}{
	{name: "mobile", metric: domain.MetricPageSpeedMobile},
	{name: "desktop", metric: domain.MetricPageSpeedDesktop},
}

// PageSpeedAdapter reads Lighthouse performance scores from PageSpeed Insights v5.
// The API is free; the key only raises the quota.
type PageSpeedAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewPageSpeedAdapter creates a PageSpeed Insights adapter.
func NewPageSpeedAdapter(client *http.Client, baseURL, apiKey string) *PageSpeedAdapter {
	return &PageSpeedAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (a *PageSpeedAdapter) Name() string          { return NamePageSpeed }
func (a *PageSpeedAdapter) Family() domain.Family { return domain.FamilyPageSpeed }
func (a *PageSpeedAdapter) Operation() string     { return "run_pagespeed" }

// CacheKey returns the normalized domain.
func (a *PageSpeedAdapter) CacheKey(target domain.Target) (string, error) {
	return domainKey(target)
}

type pageSpeedResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance struct {
				Score *float64 `json:"score"`
			} `json:"performance"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
}

// Fetch runs the mobile and desktop strategies against the site's home page.
// One failing strategy still returns the other as a partial result; both
// failing returns an error.
func (a *PageSpeedAdapter) Fetch(ctx context.Context, target domain.Target) (*Result, error) {
	host, err := a.CacheKey(target)
	if err != nil {
		return nil, err
	}

	metrics := domain.Metrics{}
	var errs []error
	for _, strategy := range pageSpeedStrategies {
		score, runErr := a.run(ctx, "https://"+host+"/", strategy.name)
		if runErr != nil {
			errs = append(errs, fmt.Errorf("pagespeed %s: %w", strategy.name, runErr))
			continue
		}
		if score != nil {
			metrics[strategy.metric] = math.Round(*score * 100)
		}
	}

	if len(errs) == len(pageSpeedStrategies) {
		return nil, errors.Join(errs...)
	}
	if len(metrics) == 0 {
		return nil, nil
	}

	return &Result{Metrics: metrics, Partial: len(errs) > 0}, nil
}

func (a *PageSpeedAdapter) run(ctx context.Context, siteURL, strategy string) (*float64, error) {
	q := url.Values{}
	q.Set("url", siteURL)
	q.Set("strategy", strategy)
	q.Set("category", "performance")
	if a.apiKey != "" {
		q.Set("key", a.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/pagespeedonline/v5/runPagespeed?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var resp pageSpeedResponse
	if doErr := do(a.client, req, &resp); doErr != nil {
		return nil, doErr
	}

	return resp.LighthouseResult.Categories.Performance.Score, nil
}
