// Package config defines the scanner configuration and its defaults.
package config

import (
	"fmt"
	"time"

	infraconfig "github.com/jonesrussell/competitive-scan/infrastructure/config"
)

// Default service configuration values.
const (
	defaultServiceName    = "competitive-scan"
	defaultServiceVersion = "1.0.0"
	defaultDBUser         = "postgres"
	defaultDBName         = "competitive_scan"
	defaultMetricsAddress = ":9102"
)

// Default scan configuration values.
const (
	defaultProviderTimeout = 20 * time.Second
	defaultBatchDelay      = 2 * time.Second
	defaultSchedule        = "0 3 * * 1"
	defaultCostWindow      = 30 * 24 * time.Hour
)

// Cache backends.
const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig              `yaml:"service"`
	Database  infraconfig.DatabaseConfig `yaml:"database"`
	Redis     infraconfig.RedisConfig    `yaml:"redis"`
	Cache     CacheConfig                `yaml:"cache"`
	Providers ProvidersConfig            `yaml:"providers"`
	Scan      ScanConfig                 `yaml:"scan"`
	Metrics   MetricsConfig              `yaml:"metrics"`
	Logging   infraconfig.LoggingConfig  `yaml:"logging"`
}

// ServiceConfig holds service identity.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// CacheConfig selects where provider responses are cached.
type CacheConfig struct {
	Backend string `env:"SCAN_CACHE_BACKEND" yaml:"backend"`
}

// ProviderConfig holds the settings shared by every provider.
type ProviderConfig struct {
	BaseURL string  `yaml:"base_url"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// MozConfig configures the Moz Links API.
type MozConfig struct {
	ProviderConfig `yaml:",inline"`
	AccessID       string `env:"MOZ_ACCESS_ID"  yaml:"access_id"`
	SecretKey      string `env:"MOZ_SECRET_KEY" yaml:"secret_key"`
}

// PlacesConfig configures the Google Places details API.
type PlacesConfig struct {
	ProviderConfig `yaml:",inline"`
	APIKey         string `env:"GOOGLE_PLACES_API_KEY" yaml:"api_key"`
}

// PageSpeedConfig configures PageSpeed Insights. The key is optional.
type PageSpeedConfig struct {
	ProviderConfig `yaml:",inline"`
	APIKey         string `env:"PAGESPEED_API_KEY" yaml:"api_key"`
}

// DataForSEOConfig configures the DataForSEO Labs API.
type DataForSEOConfig struct {
	ProviderConfig `yaml:",inline"`
	Login          string `env:"DATAFORSEO_LOGIN"    yaml:"login"`
	Password       string `env:"DATAFORSEO_PASSWORD" yaml:"password"` //nolint:gosec // API credential config
	LocationCode   int    `yaml:"location_code"`
	LanguageCode   string `yaml:"language_code"`
}

// ProvidersConfig holds one section per provider adapter.
type ProvidersConfig struct {
	Moz        MozConfig        `yaml:"moz"`
	Places     PlacesConfig     `yaml:"google_places"`
	PageSpeed  PageSpeedConfig  `yaml:"pagespeed"`
	DataForSEO DataForSEOConfig `yaml:"dataforseo"`
}

// ScanConfig controls pipeline execution.
type ScanConfig struct {
	ProviderTimeout    time.Duration `env:"SCAN_PROVIDER_TIMEOUT"  yaml:"provider_timeout"`
	BatchDelay         time.Duration `env:"SCAN_BATCH_DELAY"       yaml:"batch_delay"`
	MaxClientsPerBatch int           `env:"SCAN_MAX_CLIENTS"       yaml:"max_clients_per_batch"`
	Schedule           string        `env:"SCAN_SCHEDULE"          yaml:"schedule"`
	CostWindow         time.Duration `env:"SCAN_COST_WINDOW"       yaml:"cost_window"`
	RetryAttempts      int           `env:"SCAN_RETRY_ATTEMPTS"    yaml:"retry_attempts"`
	BreakerThreshold   int           `env:"SCAN_BREAKER_THRESHOLD" yaml:"breaker_threshold"`
	BreakerCooldown    time.Duration `env:"SCAN_BREAKER_COOLDOWN"  yaml:"breaker_cooldown"`
}

// MetricsConfig holds the Prometheus listener used by the schedule command.
type MetricsConfig struct {
	Address string `env:"METRICS_ADDRESS"  yaml:"address"`
	Pprof   bool   `env:"ENABLE_PROFILING" yaml:"pprof"`
}

// Load loads configuration from a YAML file, applies defaults, then env overrides.
func Load(path string) (*Config, error) {
	cfg, loadErr := infraconfig.LoadWithDefaults(path, setDefaults)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	if err := c.Logging.Validate(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case CacheBackendPostgres:
	case CacheBackendRedis:
		if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
			return err
		}
	default:
		return &infraconfig.ValidationError{Field: "cache.backend", Message: "must be postgres or redis"}
	}

	if c.Scan.ProviderTimeout <= 0 {
		return &infraconfig.ValidationError{Field: "scan.provider_timeout", Message: "must be positive"}
	}

	if c.Scan.BatchDelay < 0 {
		return &infraconfig.ValidationError{Field: "scan.batch_delay", Message: "must not be negative"}
	}

	if c.Scan.MaxClientsPerBatch < 0 {
		return &infraconfig.ValidationError{Field: "scan.max_clients_per_batch", Message: "must not be negative"}
	}

	return nil
}

// setDefaults applies default values to all configuration sections.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)

	if cfg.Database.User == "" {
		cfg.Database.User = defaultDBUser
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = defaultDBName
	}
	cfg.Database.SetDefaults()
	cfg.Redis.SetDefaults()
	cfg.Logging.SetDefaults()

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendPostgres
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = defaultMetricsAddress
	}

	setProviderDefaults(&cfg.Providers)
	setScanDefaults(&cfg.Scan)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}

	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
}

func setProviderDefaults(p *ProvidersConfig) {
	p.Moz.setDefaults("https://lsapi.seomoz.com", 1, 1)
	p.Places.setDefaults("https://maps.googleapis.com", 10, 5)
	p.PageSpeed.setDefaults("https://www.googleapis.com", 1, 2)
	p.DataForSEO.setDefaults("https://api.dataforseo.com", 2, 2)

	if p.DataForSEO.LocationCode == 0 {
		p.DataForSEO.LocationCode = 2840
	}
	if p.DataForSEO.LanguageCode == "" {
		p.DataForSEO.LanguageCode = "en"
	}
}

func (p *ProviderConfig) setDefaults(baseURL string, rps float64, burst int) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.RPS == 0 {
		p.RPS = rps
	}
	if p.Burst == 0 {
		p.Burst = burst
	}
}

func setScanDefaults(s *ScanConfig) {
	if s.ProviderTimeout == 0 {
		s.ProviderTimeout = defaultProviderTimeout
	}

	if s.BatchDelay == 0 {
		s.BatchDelay = defaultBatchDelay
	}

	if s.Schedule == "" {
		s.Schedule = defaultSchedule
	}

	if s.CostWindow == 0 {
		s.CostWindow = defaultCostWindow
	}

	if s.RetryAttempts == 0 {
		s.RetryAttempts = 3
	}

	if s.BreakerThreshold == 0 {
		s.BreakerThreshold = 5
	}

	if s.BreakerCooldown == 0 {
		s.BreakerCooldown = time.Minute
	}
}
