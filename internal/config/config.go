package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultFile             = "library.yml"
	DefaultHistoryTable     = "schema_history"
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
	DefaultLockWait         = 30 * time.Second
	DefaultHTTPAddr         = ":8080"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultMaxConns         = 5

	// EnvPrefix prefixes every environment variable read by MergeEnv.
	EnvPrefix = "LIBRARY_"
)

// Config holds the application configuration loaded from file, environment, and flags.
// An empty MigrationsDir selects the scripts embedded in the binary.
type Config struct {
	DatabaseURL      string        `env:"DATABASE_URL"`
	MigrationsDir    string        `env:"MIGRATIONS_DIR"`
	HistoryTable     string        `env:"HISTORY_TABLE"`
	LockTimeout      time.Duration `env:"LOCK_TIMEOUT"`
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT"`
	LockWait         time.Duration `env:"LOCK_WAIT"`
	OutOfOrder       bool          `env:"OUT_OF_ORDER"`
	IgnoreMissing    bool          `env:"IGNORE_MISSING"`
	HTTPAddr         string        `env:"HTTP_ADDR"`
	LogLevel         string        `env:"LOG_LEVEL"`
	LogFormat        string        `env:"LOG_FORMAT"`
	MaxConns         int32         `env:"MAX_CONNS"`
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	MigrationsDir    string `yaml:"migrations_dir"`
	HistoryTable     string `yaml:"history_table"`
	LockTimeout      string `yaml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout"`
	LockWait         string `yaml:"lock_wait"`
	OutOfOrder       *bool  `yaml:"out_of_order"`
	IgnoreMissing    *bool  `yaml:"ignore_missing"`
	HTTPAddr         string `yaml:"http_addr"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	MaxConns         int32  `yaml:"max_conns"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		HistoryTable:     DefaultHistoryTable,
		LockTimeout:      DefaultLockTimeout,
		StatementTimeout: DefaultStatementTimeout,
		LockWait:         DefaultLockWait,
		HTTPAddr:         DefaultHTTPAddr,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		MaxConns:         DefaultMaxConns,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.MigrationsDir, raw.MigrationsDir)
	setString(&cfg.HistoryTable, raw.HistoryTable)
	setString(&cfg.HTTPAddr, raw.HTTPAddr)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"lock_timeout", raw.LockTimeout, &cfg.LockTimeout},
		{"statement_timeout", raw.StatementTimeout, &cfg.StatementTimeout},
		{"lock_wait", raw.LockWait, &cfg.LockWait},
	}

	for _, d := range durations {
		if d.raw == "" {
			continue
		}

		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", d.key, d.raw, err)
		}

		*d.dst = v
	}

	if raw.OutOfOrder != nil {
		cfg.OutOfOrder = *raw.OutOfOrder
	}

	if raw.IgnoreMissing != nil {
		cfg.IgnoreMissing = *raw.IgnoreMissing
	}

	if raw.MaxConns != 0 {
		cfg.MaxConns = raw.MaxConns
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MergeEnv overrides config fields from LIBRARY_* environment variables.
// Unset variables leave the current values alone.
func MergeEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	return nil
}
