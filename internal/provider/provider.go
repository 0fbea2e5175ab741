// Package provider contains one adapter per third-party metrics API. Each adapter
// calls its vendor and normalizes the answer into domain.Metrics.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/jonesrussell/competitive-scan/infrastructure/retry"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_adapter.go -package=mocks . Adapter

// Provider names. They are also the cache and cost-log provider keys.
const (
	NameMoz                 = "moz"
	NameGooglePlaces        = "google_places"
	NamePageSpeed           = "pagespeed"
	NameDataForSEO          = "dataforseo"
	NameAddressVerification = "address_verification"
	NameProfileInsights     = "profile_insights"
)

var (
	// ErrTargetUnsupported is returned when an adapter cannot address a target,
	// e.g. a business listing lookup without a place id.
	ErrTargetUnsupported = errors.New("target not supported by provider")
	// ErrUnauthorized is returned when the vendor rejects the credentials.
	ErrUnauthorized = errors.New("provider rejected credentials")
)

// maxErrorBody caps how much of an error response is kept in the error message.
const maxErrorBody = 512

// Result is a normalized provider answer. It is also the cached payload.
type Result struct {
	Metrics  domain.Metrics          `json:"metrics"`
	Keywords []domain.KeywordRanking `json:"keywords,omitempty"`
	CostUSD  float64                 `json:"cost_usd"`
	// Partial marks a result missing part of what the vendor normally
	// returns. It is used for this scan but never cached.
	Partial bool `json:"-"`
}

// Adapter fetches one metric family from one vendor.
//
// Fetch returns (nil, nil) when the vendor answers cleanly with no data, and an
// error on auth failures, non-2xx answers and malformed payloads.
type Adapter interface {
	Name() string
	Family() domain.Family
	Operation() string
	CacheKey(target domain.Target) (string, error)
	Fetch(ctx context.Context, target domain.Target) (*Result, error)
}

// Registry is the static provider-name to adapter mapping.
type Registry struct {
	adapters map[string]Adapter
	byFamily map[domain.Family]Adapter
}

// NewRegistry registers adapters. A later adapter for the same family replaces
// an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter, len(adapters)),
		byFamily: make(map[domain.Family]Adapter, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
		r.byFamily[a.Family()] = a
	}
	return r
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// ForFamily returns the adapter that serves family.
func (r *Registry) ForFamily(family domain.Family) (Adapter, bool) {
	a, ok := r.byFamily[family]
	return a, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NormalizeDomain reduces a URL or host to its lower-cased host without
// scheme, "www." prefix, port or path.
func NormalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return "", fmt.Errorf("%w: empty domain", ErrTargetUnsupported)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "", fmt.Errorf("%w: invalid domain %q", ErrTargetUnsupported, raw)
	}

	return strings.TrimPrefix(parsed.Hostname(), "www."), nil
}

func domainKey(target domain.Target) (string, error) {
	return NormalizeDomain(target.Domain)
}

// do sends req and decodes a 2xx JSON body into out. Rate limiting and server
// errors are marked transient so the fetcher retries them.
func do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("%s returned status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrUnauthorized, statusErr)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return retry.Transient(statusErr)
		default:
			return statusErr
		}
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}

	return nil
}
