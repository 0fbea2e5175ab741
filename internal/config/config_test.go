package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/competitive-scan/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))

	cfg, err := config.Load(writeConfig(t, "service:\n  name: scanner\n"))
	require.NoError(t, err)

	assert.Equal(t, "scanner", cfg.Service.Name)
	assert.Equal(t, config.CacheBackendPostgres, cfg.Cache.Backend)
	assert.Equal(t, 20*time.Second, cfg.Scan.ProviderTimeout)
	assert.Equal(t, 2*time.Second, cfg.Scan.BatchDelay)
	assert.Equal(t, "https://lsapi.seomoz.com", cfg.Providers.Moz.BaseURL)
	assert.Equal(t, 2840, cfg.Providers.DataForSEO.LocationCode)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_ProviderSectionsAndEnv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("MOZ_ACCESS_ID", "env-id")
	t.Setenv("SCAN_BATCH_DELAY", "500ms")

	body := `
providers:
  moz:
    base_url: http://moz.local
    rps: 4
    access_id: file-id
    secret_key: file-secret
  google_places:
    api_key: places-key
scan:
  max_clients_per_batch: 25
`
	cfg, err := config.Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "http://moz.local", cfg.Providers.Moz.BaseURL)
	assert.InDelta(t, 4.0, cfg.Providers.Moz.RPS, 0.001)
	assert.Equal(t, "env-id", cfg.Providers.Moz.AccessID)
	assert.Equal(t, "file-secret", cfg.Providers.Moz.SecretKey)
	assert.Equal(t, "places-key", cfg.Providers.Places.APIKey)
	assert.Equal(t, 25, cfg.Scan.MaxClientsPerBatch)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.BatchDelay)
}

func TestLoad_InvalidCacheBackend(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))

	_, err := config.Load(writeConfig(t, "cache:\n  backend: memcached\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
}
