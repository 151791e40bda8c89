package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type StorageKind string

const (
	StorageFile     StorageKind = "file"
	StorageDrive    StorageKind = "drive"
	StorageGCS      StorageKind = "gcs"
	StoragePostgres StorageKind = "postgres"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// dataset storage
	Storage              StorageKind `toml:"storage"`
	EntriesPath          string      `toml:"entries_path"`
	DriveFileID          string      `toml:"drive_file_id"`
	DriveCredentialsPath string      `toml:"drive_credentials_path"`
	GCSBucket            string      `toml:"gcs_bucket"`
	GCSObject            string      `toml:"gcs_object"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// forecast model
	ParamsPath      string  `toml:"params_path"`
	BlendFoodWeight float64 `toml:"blend_food_weight"`

	AddEntryRateLimitPerMin int `toml:"add_entry_rate_limit_per_min"`
	ChartCacheMB            int `toml:"chart_cache_mb"`

	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env, with defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode toml config %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config [%s]: %w", env, err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9100
	}
	if c.Storage == "" {
		c.Storage = StorageFile
	}
	if c.BlendFoodWeight == 0 {
		c.BlendFoodWeight = 0.7
	}
	if c.AddEntryRateLimitPerMin == 0 {
		c.AddEntryRateLimitPerMin = 10
	}
	if c.ChartCacheMB == 0 {
		c.ChartCacheMB = 64
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
}

func (c *Config) Validate() error {
	if c.ParamsPath == "" {
		return errors.New("params_path not set")
	}
	if c.BlendFoodWeight < 0 || c.BlendFoodWeight > 1 {
		return fmt.Errorf("blend_food_weight must be in [0, 1], got %f", c.BlendFoodWeight)
	}

	switch c.Storage {
	case StorageFile:
		if c.EntriesPath == "" {
			return errors.New("entries_path not set for file storage")
		}
	case StorageDrive:
		if c.DriveFileID == "" || c.DriveCredentialsPath == "" {
			return errors.New("drive_file_id and drive_credentials_path must be set for drive storage")
		}
	case StorageGCS:
		if c.GCSBucket == "" || c.GCSObject == "" {
			return errors.New("gcs_bucket and gcs_object must be set for gcs storage")
		}
	case StoragePostgres:
		if c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDBName == "" {
			return errors.New("postgres_host, postgres_port and postgres_db_name must be set for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage: %s", c.Storage)
	}

	return nil
}
