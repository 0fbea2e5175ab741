package provider_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infrahttp "github.com/jonesrussell/competitive-scan/infrastructure/http"
	"github.com/jonesrussell/competitive-scan/infrastructure/retry"
	"github.com/jonesrussell/competitive-scan/internal/domain"
	"github.com/jonesrussell/competitive-scan/internal/provider"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *http.Client) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv, infrahttp.NewClient(nil)
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Example.com", want: "example.com"},
		{in: "https://www.example.com/about?x=1", want: "example.com"},
		{in: "http://shop.example.com:8080", want: "shop.example.com"},
		{in: "  www.Example.co.uk/ ", want: "example.co.uk"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := provider.NormalizeDomain(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := provider.NormalizeDomain("   ")
	assert.ErrorIs(t, err, provider.ErrTargetUnsupported)
}

func TestRegistry_ForFamily(t *testing.T) {
	t.Parallel()

	client := infrahttp.NewClient(nil)
	moz := provider.NewMozAdapter(client, "http://moz", "id", "secret")
	places := provider.NewPlacesAdapter(client, "http://places", "key")

	reg := provider.NewRegistry(moz, places)

	got, ok := reg.ForFamily(domain.FamilyAuthority)
	require.True(t, ok)
	assert.Equal(t, provider.NameMoz, got.Name())

	_, ok = reg.ForFamily(domain.FamilyPageSpeed)
	assert.False(t, ok)

	byName, ok := reg.Get(provider.NameGooglePlaces)
	require.True(t, ok)
	assert.Equal(t, domain.FamilyBusinessListing, byName.Family())

	assert.Equal(t, []string{provider.NameGooglePlaces, provider.NameMoz}, reg.Names())
}

func TestAdapters_StatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		wantAuth      bool
		wantRetryable bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantAuth: true},
		{name: "rate limited", status: http.StatusTooManyRequests, wantRetryable: true},
		{name: "server error", status: http.StatusBadGateway, wantRetryable: true},
		{name: "bad request", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			moz := provider.NewMozAdapter(client, srv.URL, "id", "secret")

			res, err := moz.Fetch(t.Context(), domain.Target{Domain: "example.com"})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.wantAuth, errors.Is(err, provider.ErrUnauthorized))
			assert.Equal(t, tt.wantRetryable, retry.DefaultIsRetryable(err))
		})
	}
}
