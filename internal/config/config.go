package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config defines configuration for the tileseed CLI.
type Config struct {
	Service     ServiceConfig `yaml:"service"`
	CachePath   string        `yaml:"cache_path" env:"TILESEED_CACHE_PATH"`
	Workers     int           `yaml:"workers" env:"TILESEED_WORKERS"`
	QueueSize   int           `yaml:"queue_size" env:"TILESEED_QUEUE_SIZE"`
	TileTimeout time.Duration `yaml:"-" env:"TILESEED_TILE_TIMEOUT"`
	BatchSize   int           `yaml:"batch_size" env:"TILESEED_BATCH_SIZE"`
	Progress    bool          `yaml:"progress" env:"TILESEED_PROGRESS"`
	Retry       RetryConfig   `yaml:"retry"`
	Breaker     BreakerConfig `yaml:"breaker"`
	Export      ExportConfig  `yaml:"export"`
}

// ServiceConfig identifies the upstream tile service.
type ServiceConfig struct {
	Name        string `yaml:"name" env:"TILESEED_SERVICE_NAME"`
	URLTemplate string `yaml:"url_template" env:"TILESEED_SERVICE_URL_TEMPLATE"`
	UserAgent   string `yaml:"user_agent" env:"TILESEED_SERVICE_USER_AGENT"`
}

// RetryConfig defines retry behavior for tile downloads.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts" env:"TILESEED_RETRY_ATTEMPTS"`
	Backoff    time.Duration `yaml:"-" env:"TILESEED_RETRY_BACKOFF"`
	MaxBackoff time.Duration `yaml:"-" env:"TILESEED_RETRY_MAX_BACKOFF"`
	Factor     float64       `yaml:"factor" env:"TILESEED_RETRY_FACTOR"`
}

// BreakerConfig defines circuit breaker behavior per service.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" env:"TILESEED_BREAKER_THRESHOLD"`
	RecoveryTimeout  time.Duration `yaml:"-" env:"TILESEED_BREAKER_RECOVERY"`
}

// ExportConfig defines the destination for cache exports.
type ExportConfig struct {
	Bucket string `yaml:"bucket" env:"TILESEED_EXPORT_BUCKET"`
	Object string `yaml:"object" env:"TILESEED_EXPORT_OBJECT"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		CachePath:   "tiles.gpkg",
		Workers:     5,
		BatchSize:   64,
		TileTimeout: 4 * time.Second,
		Retry: RetryConfig{
			Attempts:   3,
			Backoff:    500 * time.Millisecond,
			MaxBackoff: 5 * time.Second,
			Factor:     2.0,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 10,
			RecoveryTimeout:  30 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Service     ServiceConfig `yaml:"service"`
	CachePath   string        `yaml:"cache_path"`
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	TileTimeout string        `yaml:"tile_timeout"`
	BatchSize   int           `yaml:"batch_size"`
	Progress    bool          `yaml:"progress"`
	Retry       struct {
		Attempts   int     `yaml:"attempts"`
		Backoff    string  `yaml:"backoff"`
		MaxBackoff string  `yaml:"max_backoff"`
		Factor     float64 `yaml:"factor"`
	} `yaml:"retry"`
	Breaker struct {
		FailureThreshold int    `yaml:"failure_threshold"`
		RecoveryTimeout  string `yaml:"recovery_timeout"`
	} `yaml:"breaker"`
	Export ExportConfig `yaml:"export"`
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Service.Name != "" {
		cfg.Service.Name = yc.Service.Name
	}
	if yc.Service.URLTemplate != "" {
		cfg.Service.URLTemplate = yc.Service.URLTemplate
	}
	if yc.Service.UserAgent != "" {
		cfg.Service.UserAgent = yc.Service.UserAgent
	}
	if yc.CachePath != "" {
		cfg.CachePath = yc.CachePath
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.QueueSize != 0 {
		cfg.QueueSize = yc.QueueSize
	}
	if yc.TileTimeout != "" {
		d, err := time.ParseDuration(yc.TileTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse tile_timeout: %w", err)
		}
		cfg.TileTimeout = d
	}
	if yc.BatchSize != 0 {
		cfg.BatchSize = yc.BatchSize
	}
	cfg.Progress = yc.Progress
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}
	if yc.Retry.Factor != 0 {
		cfg.Retry.Factor = yc.Retry.Factor
	}
	if yc.Breaker.FailureThreshold != 0 {
		cfg.Breaker.FailureThreshold = yc.Breaker.FailureThreshold
	}
	if yc.Breaker.RecoveryTimeout != "" {
		d, err := time.ParseDuration(yc.Breaker.RecoveryTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse breaker.recovery_timeout: %w", err)
		}
		cfg.Breaker.RecoveryTimeout = d
	}
	if yc.Export.Bucket != "" {
		cfg.Export.Bucket = yc.Export.Bucket
	}
	if yc.Export.Object != "" {
		cfg.Export.Object = yc.Export.Object
	}

	return cfg, nil
}

// LoadFromEnv overlays TILESEED_ environment variables onto c.
func (c *Config) LoadFromEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return errors.New("config: service name is required")
	}
	if c.Service.URLTemplate == "" {
		return errors.New("config: service url_template is required")
	}
	if c.CachePath == "" {
		return errors.New("config: cache_path is required")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("config: batch_size must be positive")
	}
	if c.Retry.Attempts < 1 {
		return errors.New("config: retry attempts must be at least 1")
	}
	if c.Retry.Factor < 1 {
		return errors.New("config: retry factor must be at least 1")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return errors.New("config: breaker failure_threshold must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Service.Name != "" {
		c.Service.Name = override.Service.Name
	}
	if override.Service.URLTemplate != "" {
		c.Service.URLTemplate = override.Service.URLTemplate
	}
	if override.Service.UserAgent != "" {
		c.Service.UserAgent = override.Service.UserAgent
	}
	if override.CachePath != "" {
		c.CachePath = override.CachePath
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.QueueSize != 0 {
		c.QueueSize = override.QueueSize
	}
	if override.TileTimeout != 0 {
		c.TileTimeout = override.TileTimeout
	}
	if override.BatchSize != 0 {
		c.BatchSize = override.BatchSize
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Retry.Factor != 0 {
		c.Retry.Factor = override.Retry.Factor
	}
	if override.Breaker.FailureThreshold != 0 {
		c.Breaker.FailureThreshold = override.Breaker.FailureThreshold
	}
	if override.Breaker.RecoveryTimeout != 0 {
		c.Breaker.RecoveryTimeout = override.Breaker.RecoveryTimeout
	}
	if override.Export.Bucket != "" {
		c.Export.Bucket = override.Export.Bucket
	}
	if override.Export.Object != "" {
		c.Export.Object = override.Export.Object
	}
	return c
}
