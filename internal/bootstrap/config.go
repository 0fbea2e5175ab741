// Package bootstrap wires configuration, storage, provider adapters and the
// scan pipeline for the CLI commands.
package bootstrap

import (
	"fmt"

	infraconfig "github.com/jonesrussell/competitive-scan/infrastructure/config"
	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/config"
)

const defaultConfigPath = "config.yml"

// LoadConfig loads and validates the configuration. An empty path falls back
// to CONFIG_PATH, then config.yml.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = infraconfig.GetConfigPath(defaultConfigPath)
	}

	cfg, loadErr := config.Load(path)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	return cfg, nil
}

// CreateLogger creates the structured logger for the service.
func CreateLogger(cfg *config.Config) (infralogger.Logger, error) {
	level := cfg.Logging.Level
	if cfg.Service.Debug {
		level = "debug"
	}

	log, logErr := infralogger.New(infralogger.Config{
		Level:       level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if logErr != nil {
		return nil, fmt.Errorf("create logger: %w", logErr)
	}

	return log.With(
		infralogger.String("service", cfg.Service.Name),
		infralogger.String("version", cfg.Service.Version),
	), nil
}
