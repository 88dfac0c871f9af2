package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds the configuration in layers: defaults, then the optional YAML
// file, then a .env file in the working directory, then process environment
// variables. The result is validated before it is returned.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadConfigFromFile(configFile, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint and reports all violations at once.
func (cfg *Config) Validate() error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// loadConfigFromFile reads a YAML file on top of cfg. Keys absent from the
// file keep their current values.
func loadConfigFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.int("PORT", &cfg.Port)
	e.string("ENV", &cfg.Env)
	e.string("LOG_LEVEL", &cfg.LogLevel)
	e.string("DATABASE_URL", &cfg.DatabaseURL)
	e.string("SENTRY_DSN", &cfg.SentryDSN)
	e.string("GTFS_SEED_FILE", &cfg.GTFSSeedFile)
	e.bool("GTFS_DEMO_BUSES", &cfg.DemoBuses)

	e.int("DB_MAX_OPEN_CONNS", &cfg.DB.MaxOpenConns)
	e.int("DB_MAX_IDLE_CONNS", &cfg.DB.MaxIdleConns)
	e.int("DB_CONNECT_RETRIES", &cfg.DB.ConnectRetries)

	e.int("CACHE_TTL_SECONDS", &cfg.Cache.TTLSeconds)
	e.int("CACHE_CLEANUP_INTERVAL", &cfg.Cache.CleanupIntervalSeconds)

	e.float("DEFAULT_SPEED_KMH", &cfg.ETA.DefaultSpeedKmh)
	e.float("MIN_SPEED_KMH", &cfg.ETA.MinSpeedKmh)
	e.float("MAX_SPEED_KMH", &cfg.ETA.MaxSpeedKmh)
	e.int("SPEED_SAMPLE_WINDOW", &cfg.ETA.SpeedSampleWindow)
	e.int("ETA_BASE_TIME_PER_ROUTE", &cfg.ETA.BaseTimePerRoute)
	e.int("ETA_EXTRA_TIME_PER_ROUTE", &cfg.ETA.ExtraTimePerRoute)
	e.int("ETA_MAX_ADDITIONAL_TIME", &cfg.ETA.MaxAdditionalTime)

	e.string("NATS_URL", &cfg.NATS.URL)
	e.string("NATS_SUBJECT_PREFIX", &cfg.NATS.SubjectPrefix)

	e.int("METRICS_CACHE_TTL_SECONDS", &cfg.Metrics.CacheTTLSeconds)

	return e.err
}

// envReader overrides fields from the environment and keeps the first parse error.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) string(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("invalid %s: %q", key, v)
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.err = fmt.Errorf("invalid %s: %q", key, v)
		return
	}
	*dst = f
}

func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("invalid %s: %q", key, v)
		return
	}
	*dst = b
}
