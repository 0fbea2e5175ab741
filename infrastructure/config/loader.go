// Package config loads YAML configuration files with environment variable overrides.
//
// Loading runs in this order, later steps winning:
//
//  1. the env file named by ENV_FILE, or else .env.local then .env
//  2. the YAML file, with ${VAR} references expanded from the environment
//  3. the caller's defaults for fields still unset
//  4. fields tagged `env`, read from the environment
//
// Example:
//
//	type ScanConfig struct {
//	    BatchDelay time.Duration `yaml:"batch_delay" env:"SCAN_BATCH_DELAY"`
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeFor[time.Duration]()

func loadEnvFiles() error {
	names := []string{".env.local", ".env"}
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		names = []string{envFile}
	}

	for _, name := range names {
		// godotenv.Load never overwrites variables that are already set.
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads a YAML config file into T and applies environment overrides.
func Load[T any](path string) (*T, error) {
	return LoadWithDefaults[T](path, nil)
}

// LoadWithDefaults is Load with setDefaults applied between the file and the
// environment overrides. A malformed override value is an error.
func LoadWithDefaults[T any](path string, setDefaults func(*T)) (*T, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg T
	if unmarshalErr := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, unmarshalErr)
	}

	if setDefaults != nil {
		setDefaults(&cfg)
	}

	if envErr := applyEnv(reflect.ValueOf(&cfg).Elem(), os.LookupEnv); envErr != nil {
		return nil, envErr
	}
	return &cfg, nil
}

// GetConfigPath returns CONFIG_PATH or defaultPath.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}

func applyEnv(v reflect.Value, lookup func(string) (string, bool)) error {
	if v.Kind() != reflect.Struct {
		return nil
	}

	var errs []error
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		key := t.Field(i).Tag.Get("env")
		if key == "" {
			if field.Kind() == reflect.Struct {
				errs = append(errs, applyEnv(field, lookup))
			}
			continue
		}

		raw, ok := lookup(key)
		if !ok || raw == "" {
			continue
		}
		if err := setField(field, strings.TrimSpace(raw)); err != nil {
			errs = append(errs, &ValidationError{Field: key, Message: err.Error()})
		}
	}

	return errors.Join(errs...)
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q", raw)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := parseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", raw)
	}
}
