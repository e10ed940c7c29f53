// Package config loads the merge service configuration from a YAML file,
// environment variables and command-line flags, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/pagemerge/internal/logger"
	"github.com/tsawler/pagemerge/policy"
	"github.com/tsawler/pagemerge/spatial"
	"github.com/tsawler/pagemerge/store"
)

// Config is the process configuration of the merge service
type Config struct {
	// Workers is the number of pages merged concurrently
	Workers int `yaml:"workers"`

	// BatchSize is the number of pages fetched per query. Zero means four
	// pages per worker.
	BatchSize int `yaml:"batch_size"`

	// Interval is the pause between scans in continuous mode
	Interval time.Duration `yaml:"interval"`

	LogLevel string `yaml:"log_level"`
	LogColor bool   `yaml:"log_color"`

	// MetricsAddr is the listen address of the /metrics endpoint, empty
	// to disable it
	MetricsAddr string `yaml:"metrics_addr"`

	DatabaseURL string `yaml:"database_url"`

	// PolicyPath names a YAML merge plan. Empty selects the default plan
	// with Margin applied.
	PolicyPath string `yaml:"policy_path"`

	// Margin is the adjacency margin of the default plan
	Margin float64 `yaml:"margin"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Workers:  DefaultWorkers(),
		Interval: time.Minute,
		LogLevel: "info",
		Margin:   spatial.DefaultMargin,
	}
}

// DefaultWorkers returns the number of logical CPUs
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Load returns the default configuration overlaid with the YAML file at
// path (if path is not empty) and then with the process environment
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays values found through lookup. DATABASE_URL wins over a
// DSN assembled from POSTGRES_* and PG* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}

	if v := get("PAGEMERGE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAGEMERGE_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := get("PAGEMERGE_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAGEMERGE_BATCH_SIZE: %w", err)
		}
		c.BatchSize = n
	}
	if v := get("PAGEMERGE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PAGEMERGE_INTERVAL: %w", err)
		}
		c.Interval = d
	}
	if v := get("PAGEMERGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := get("PAGEMERGE_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := get("PAGEMERGE_POLICY"); v != "" {
		c.PolicyPath = v
	}

	if v := get("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	} else if get("POSTGRES_DB") != "" || get("PGHOST") != "" {
		c.DatabaseURL = store.DSN(
			getDefault(get, "POSTGRES_USER", "pagemerge"),
			get("POSTGRES_PASSWORD"),
			getDefault(get, "PGHOST", "db"),
			getDefault(get, "PGPORT", "5432"),
			getDefault(get, "POSTGRES_DB", "pagemerge"),
			getDefault(get, "PGSSLMODE", "disable"),
		)
	}
	return nil
}

func getDefault(get func(string) string, key, def string) string {
	if v := get(key); v != "" {
		return v
	}
	return def
}

// Validate checks the configuration for values no component can run with
func (c Config) Validate() error {
	var errs []error
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size must not be negative, got %d", c.BatchSize))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.Margin < 0 {
		errs = append(errs, fmt.Errorf("margin must not be negative, got %v", c.Margin))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EffectiveBatchSize returns BatchSize, or four pages per worker when unset
func (c Config) EffectiveBatchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return c.Workers * 4
}

// Plan returns the merge plan named by PolicyPath, or the default plan with
// the configured margin
func (c Config) Plan() (policy.Plan, error) {
	if c.PolicyPath != "" {
		return policy.Load(c.PolicyPath)
	}
	plan := policy.DefaultPlan()
	plan.Margin = c.Margin
	if err := plan.Validate(); err != nil {
		return policy.Plan{}, err
	}
	return plan, nil
}

// Marshal renders the configuration as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
