package provider_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/competitive-scan/internal/domain"
	"github.com/jonesrussell/competitive-scan/internal/provider"
)

func TestMozAdapter_Fetch(t *testing.T) {
	t.Parallel()

	srv, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/url_metrics", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "access", user)
		assert.Equal(t, "secret", pass)

		var body struct {
			Targets []string `json:"targets"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"example.com"}, body.Targets)

		_, _ = w.Write([]byte(`{"results":[{"domain_authority":42,"external_pages_to_root_domain":1200,"root_domains_to_root_domain":85}]}`))
	})

	moz := provider.NewMozAdapter(client, srv.URL+"/", "access", "secret")
	res, err := moz.Fetch(t.Context(), domain.Target{Domain: "https://www.Example.com/contact"})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, domain.Metrics{
		domain.MetricDomainAuthority:  42,
		domain.MetricBacklinks:        1200,
		domain.MetricReferringDomains: 85,
	}, res.Metrics)
	assert.InDelta(t, provider.MozCostPerCall, res.CostUSD, 1e-9)
}

func TestMozAdapter_EmptyResults(t *testing.T) {
	t.Parallel()

	srv, client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	res, err := provider.NewMozAdapter(client, srv.URL, "a", "b").Fetch(t.Context(), domain.Target{Domain: "example.com"})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestMozAdapter_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv, client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := provider.NewMozAdapter(client, srv.URL, "a", "b").Fetch(t.Context(), domain.Target{Domain: "example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestMozAdapter_CacheKey(t *testing.T) {
	t.Parallel()

	moz := provider.NewMozAdapter(nil, "", "", "")
	key, err := moz.CacheKey(domain.Target{Domain: "WWW.Example.com/path"})
	require.NoError(t, err)
	assert.Equal(t, "example.com", key)

	_, err = moz.CacheKey(domain.Target{})
	assert.ErrorIs(t, err, provider.ErrTargetUnsupported)
}
