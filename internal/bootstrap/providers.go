package bootstrap

import (
	"net/http"

	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/config"
	"github.com/jonesrussell/competitive-scan/internal/fetcher"
	"github.com/jonesrussell/competitive-scan/internal/provider"
)

// SetupProviders registers every adapter whose credentials are configured.
// PageSpeed works without a key and is always registered. A family without an
// adapter is reported unavailable in every snapshot.
func SetupProviders(cfg *config.ProvidersConfig, client *http.Client, log infralogger.Logger) *provider.Registry {
	adapters := make([]provider.Adapter, 0, 4)

	if cfg.Moz.AccessID != "" && cfg.Moz.SecretKey != "" {
		adapters = append(adapters, provider.NewMozAdapter(client, cfg.Moz.BaseURL, cfg.Moz.AccessID, cfg.Moz.SecretKey))
	} else {
		log.Warn("Moz credentials missing, authority metrics disabled", infralogger.Provider(provider.NameMoz))
	}

	if cfg.Places.APIKey != "" {
		adapters = append(adapters, provider.NewPlacesAdapter(client, cfg.Places.BaseURL, cfg.Places.APIKey))
	} else {
		log.Warn("Google Places key missing, listing metrics disabled", infralogger.Provider(provider.NameGooglePlaces))
	}

	adapters = append(adapters, provider.NewPageSpeedAdapter(client, cfg.PageSpeed.BaseURL, cfg.PageSpeed.APIKey))

	if cfg.DataForSEO.Login != "" && cfg.DataForSEO.Password != "" {
		adapters = append(adapters, provider.NewDataForSEOAdapter(
			client,
			cfg.DataForSEO.BaseURL,
			cfg.DataForSEO.Login,
			cfg.DataForSEO.Password,
			cfg.DataForSEO.LocationCode,
			cfg.DataForSEO.LanguageCode,
		))
	} else {
		log.Warn("DataForSEO credentials missing, ranking metrics disabled", infralogger.Provider(provider.NameDataForSEO))
	}

	return provider.NewRegistry(adapters...)
}

// rateLimits maps each provider to its configured token bucket.
func rateLimits(cfg *config.ProvidersConfig) map[string]fetcher.RateLimit {
	return map[string]fetcher.RateLimit{
		provider.NameMoz:          {RPS: cfg.Moz.RPS, Burst: cfg.Moz.Burst},
		provider.NameGooglePlaces: {RPS: cfg.Places.RPS, Burst: cfg.Places.Burst},
		provider.NamePageSpeed:    {RPS: cfg.PageSpeed.RPS, Burst: cfg.PageSpeed.Burst},
		provider.NameDataForSEO:   {RPS: cfg.DataForSEO.RPS, Burst: cfg.DataForSEO.Burst},
	}
}
