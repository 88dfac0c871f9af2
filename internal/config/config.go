package config

import (
	"log/slog"
	"strings"
	"time"

	"bustracker.transport.org/internal/eta"
)

// Config holds all the configuration settings for our application.
type Config struct {
	Port         int    `yaml:"port" validate:"gt=0,lte=65535"`
	Env          string `yaml:"env" validate:"oneof=development staging production testing"`
	LogLevel     string `yaml:"log_level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	DatabaseURL  string `yaml:"database_url"`
	SentryDSN    string `yaml:"sentry_dsn"`
	GTFSSeedFile string `yaml:"gtfs_seed_file"`
	DemoBuses    bool   `yaml:"demo_buses"`

	DB      DBConfig      `yaml:"db"`
	Cache   CacheConfig   `yaml:"cache"`
	ETA     ETAConfig     `yaml:"eta"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DBConfig bounds the Postgres pool. The defaults mirror a pool of 5 with
// 10 overflow connections.
type DBConfig struct {
	MaxOpenConns   int `yaml:"max_open_conns" validate:"gt=0"`
	MaxIdleConns   int `yaml:"max_idle_conns" validate:"gt=0,ltefield=MaxOpenConns"`
	ConnectRetries int `yaml:"connect_retries" validate:"gte=0"`
}

type CacheConfig struct {
	TTLSeconds             int `yaml:"ttl_seconds" validate:"gt=0"`
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds" validate:"gt=0"`
}

type ETAConfig struct {
	DefaultSpeedKmh   float64 `yaml:"default_speed_kmh" validate:"gt=0"`
	MinSpeedKmh       float64 `yaml:"min_speed_kmh" validate:"gt=0"`
	MaxSpeedKmh       float64 `yaml:"max_speed_kmh" validate:"gtfield=MinSpeedKmh"`
	SpeedSampleWindow int     `yaml:"speed_sample_window" validate:"gte=2"`
	BaseTimePerRoute  int     `yaml:"base_time_per_route" validate:"gte=0"`
	ExtraTimePerRoute int     `yaml:"extra_time_per_route" validate:"gte=0"`
	MaxAdditionalTime int     `yaml:"max_additional_time" validate:"gte=0"`
}

type NATSConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subject_prefix" validate:"required"`
	LogSubjects   bool   `yaml:"log_subjects"`
}

type MetricsConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" validate:"gt=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:     4000,
		Env:      "development",
		LogLevel: "info",
		DB: DBConfig{
			MaxOpenConns:   15,
			MaxIdleConns:   5,
			ConnectRetries: 5,
		},
		Cache: CacheConfig{
			TTLSeconds:             15,
			CleanupIntervalSeconds: 300,
		},
		ETA: ETAConfig{
			DefaultSpeedKmh:   20,
			MinSpeedKmh:       5,
			MaxSpeedKmh:       80,
			SpeedSampleWindow: eta.DefaultSpeedWindow,
			BaseTimePerRoute:  90,
			ExtraTimePerRoute: 30,
			MaxAdditionalTime: 180,
		},
		NATS: NATSConfig{
			SubjectPrefix: "eta",
		},
		Metrics: MetricsConfig{
			CacheTTLSeconds: 10,
		},
	}
}

// CacheTTL is the lifetime of a cached ETA.
func (cfg *Config) CacheTTL() time.Duration {
	return time.Duration(cfg.Cache.TTLSeconds) * time.Second
}

// CleanupInterval is the period of the cache sweep.
func (cfg *Config) CleanupInterval() time.Duration {
	return time.Duration(cfg.Cache.CleanupIntervalSeconds) * time.Second
}

// MetricsCacheTTL is how long a rendered /metrics exposition is reused.
func (cfg *Config) MetricsCacheTTL() time.Duration {
	return time.Duration(cfg.Metrics.CacheTTLSeconds) * time.Second
}

// ETAOptions converts the ETA section into engine options.
func (cfg *Config) ETAOptions() eta.Options {
	return eta.Options{
		DefaultSpeedKmh: cfg.ETA.DefaultSpeedKmh,
		MinSpeedKmh:     cfg.ETA.MinSpeedKmh,
		MaxSpeedKmh:     cfg.ETA.MaxSpeedKmh,
		SpeedWindow:     cfg.ETA.SpeedSampleWindow,
		CrossRoute: eta.CrossRoutePolicy{
			BaseMinutesPerRoute:  cfg.ETA.BaseTimePerRoute,
			ExtraMinutesPerRoute: cfg.ETA.ExtraTimePerRoute,
			MaxExtraMinutes:      cfg.ETA.MaxAdditionalTime,
		},
	}
}

// SlogLevel maps LogLevel to a slog level.
func (cfg *Config) SlogLevel() slog.Level {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
