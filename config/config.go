package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zoneinfo for ledger.timezone

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Registry     RegistryConfig     `yaml:"registry"`
	Notification NotificationConfig `yaml:"notification"`
	Push         PushConfig         `yaml:"push"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`
	Log          LogConfig          `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig selects the zap preset.
type LogConfig struct {
	Mode string `yaml:"mode"` // development | production
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// LedgerConfig tunes the admission and billing service.
type LedgerConfig struct {
	MaxConcurrentOps int    `yaml:"max_concurrent_ops"`
	Timezone         string `yaml:"timezone"`
}

// RegistryConfig controls the facility registry mirror.
type RegistryConfig struct {
	Enabled         bool            `yaml:"enabled"`
	IntervalSeconds int             `yaml:"interval_seconds"`
	Interval        time.Duration   `yaml:"-"` // Ignored by YAML parser
	HTTPProxy       string          `yaml:"http_proxy"`
	Request         RegistryRequest `yaml:"request"`
	Facilities      []FacilitySeed  `yaml:"facilities"`
}

// RegistryRequest defines the HTTP request against the upstream facility registry.
type RegistryRequest struct {
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
	PageSize int               `yaml:"pageSize"`
}

// FacilitySeed is a facility declared directly in the config file.
type FacilitySeed struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Capacity    int    `yaml:"capacity"`
	HourlyRate  string `yaml:"hourly_rate"` // decimal, e.g. "5.00"
	OperatorRef string `yaml:"operator_ref"`
}

// NotificationConfig configures how ledger events are delivered.
type NotificationConfig struct {
	Senders        []string    `yaml:"senders"` // log, webpush, redis
	QueueSize      int         `yaml:"queue_size"`
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	Redis          RedisConfig `yaml:"redis"`
}

// RedisConfig points the redis sender at a pub/sub channel.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres | sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// Timeout returns the per-notification send timeout.
func (n NotificationConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		if strings.HasPrefix(cfg.Database.DSN, "postgres://") || strings.HasPrefix(cfg.Database.DSN, "postgresql://") {
			cfg.Database.Driver = "postgres"
		} else {
			cfg.Database.Driver = "sqlite"
		}
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns
	}

	if cfg.Ledger.MaxConcurrentOps <= 0 {
		cfg.Ledger.MaxConcurrentOps = cfg.Database.MaxOpenConns
	}
	if cfg.Ledger.Timezone == "" {
		cfg.Ledger.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(cfg.Ledger.Timezone); err != nil {
		return fmt.Errorf("invalid ledger.timezone %q: %w", cfg.Ledger.Timezone, err)
	}

	if cfg.Registry.IntervalSeconds <= 0 {
		cfg.Registry.IntervalSeconds = 300
	}
	cfg.Registry.Interval = time.Duration(cfg.Registry.IntervalSeconds) * time.Second
	if cfg.Registry.Request.PageSize <= 0 {
		cfg.Registry.Request.PageSize = 100
	}
	if cfg.Registry.Enabled && cfg.Registry.Request.URL == "" {
		return fmt.Errorf("registry.request.url is required when the registry sync is enabled")
	}

	if len(cfg.Notification.Senders) == 0 {
		cfg.Notification.Senders = []string{"log"}
	}
	if cfg.Notification.QueueSize <= 0 {
		cfg.Notification.QueueSize = 256
	}
	if cfg.Notification.TimeoutSeconds <= 0 {
		cfg.Notification.TimeoutSeconds = 5
	}
	if cfg.Notification.Redis.Channel == "" {
		cfg.Notification.Redis.Channel = "parking-events"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "development"
	}
	return nil
}
