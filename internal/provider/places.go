package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonesrussell/competitive-scan/infrastructure/retry"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// PlacesCostPerCall is the Places Details price with the basic + atmosphere fields requested.
const PlacesCostPerCall = 0.017

// Places API status values.
const (
	placesStatusOK             = "OK"
	placesStatusZeroResults    = "ZERO_RESULTS"
	placesStatusNotFound       = "NOT_FOUND"
	placesStatusOverQueryLimit = "OVER_QUERY_LIMIT"
	placesStatusRequestDenied  = "REQUEST_DENIED"
	placesStatusUnknownError   = "UNKNOWN_ERROR"
)

// PlacesAdapter reads review count and rating from Google Places details.
type PlacesAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewPlacesAdapter creates a Google Places adapter.
func NewPlacesAdapter(client *http.Client, baseURL, apiKey string) *PlacesAdapter {
	return &PlacesAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (a *PlacesAdapter) Name() string          { return NameGooglePlaces }
func (a *PlacesAdapter) Family() domain.Family { return domain.FamilyBusinessListing }
func (a *PlacesAdapter) Operation() string     { return "place_details" }

// CacheKey returns "place:<id>". Targets without a place id are unsupported.
func (a *PlacesAdapter) CacheKey(target domain.Target) (string, error) {
	id := strings.TrimSpace(target.PlaceID)
	if id == "" {
		return "", fmt.Errorf("%w: no place id for %q", ErrTargetUnsupported, target.Domain)
	}
	return "place:" + id, nil
}

type placesResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Rating           *float64 `json:"rating"`
		UserRatingsTotal *float64 `json:"user_ratings_total"`
	} `json:"result"`
}

// Fetch calls GET /maps/api/place/details/json.
func (a *PlacesAdapter) Fetch(ctx context.Context, target domain.Target) (*Result, error) {
	if _, err := a.CacheKey(target); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("place_id", strings.TrimSpace(target.PlaceID))
	q.Set("fields", "rating,user_ratings_total")
	q.Set("key", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/maps/api/place/details/json?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var resp placesResponse
	if doErr := do(a.client, req, &resp); doErr != nil {
		return nil, fmt.Errorf("places details: %w", doErr)
	}

	switch resp.Status {
	case placesStatusOK:
	case placesStatusZeroResults, placesStatusNotFound:
		return nil, nil
	case placesStatusOverQueryLimit, placesStatusUnknownError:
		return nil, retry.Transient(fmt.Errorf("places details: status %s", resp.Status))
	case placesStatusRequestDenied:
		return nil, fmt.Errorf("places details: %w: %s", ErrUnauthorized, resp.ErrorMessage)
	default:
		return nil, fmt.Errorf("places details: status %s: %s", resp.Status, resp.ErrorMessage)
	}

	metrics := domain.Metrics{}
	setIfPresent(metrics, domain.MetricReviewAverage, resp.Result.Rating)
	setIfPresent(metrics, domain.MetricReviewCount, resp.Result.UserRatingsTotal)
	if len(metrics) == 0 {
		return nil, nil
	}

	return &Result{Metrics: metrics, CostUSD: PlacesCostPerCall}, nil
}
