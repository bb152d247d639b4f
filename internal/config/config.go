// Package config loads runtime settings and rule thresholds from the
// environment, optionally preloaded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/mmynk/welfareguard/internal/dispatch"
	"github.com/mmynk/welfareguard/internal/graph"
	"github.com/mmynk/welfareguard/internal/rules"
	"github.com/mmynk/welfareguard/internal/service"
)

// Config represents application configuration
type Config struct {
	DBPath  string
	OpsAddr string

	Redis RedisConfig
	Pool  dispatch.PoolConfig
	Sweep SweepConfig

	Thresholds          rules.Thresholds
	RingDegreeThreshold int

	// AdvisoryScorer enables the logistic advisory scorer.
	AdvisoryScorer bool
}

// RedisConfig represents the task broker configuration
type RedisConfig struct {
	URL   string
	Queue string
}

// SweepConfig represents the periodic ring sweep configuration
type SweepConfig struct {
	// Interval between sweeps; zero disables the periodic sweep.
	Interval time.Duration
	Penalty  float64
}

// Load reads .env (if present) and then the process environment.
// Variables already set in the environment take precedence over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var e env
	defaults := rules.DefaultThresholds()

	cfg := &Config{
		DBPath:  e.str("DB_PATH", "./data/welfare.db"),
		OpsAddr: e.str("OPS_ADDR", ":9090"),
		Redis: RedisConfig{
			URL:   e.str("REDIS_URL", "redis://localhost:6379/0"),
			Queue: e.str("QUEUE_NAME", "welfareguard:evaluations"),
		},
		Pool: dispatch.PoolConfig{
			Concurrency: e.integer("WORKER_CONCURRENCY", dispatch.DefaultConcurrency),
			MaxAttempts: e.integer("MAX_ATTEMPTS", dispatch.DefaultMaxAttempts),
			PollTimeout: e.duration("POLL_TIMEOUT", dispatch.DefaultPollTimeout),
		},
		Sweep: SweepConfig{
			Interval: e.duration("SWEEP_INTERVAL", 10*time.Minute),
			Penalty:  e.float("SWEEP_PENALTY", service.DefaultSweepPenalty),
		},
		Thresholds: rules.Thresholds{
			IncomeCeiling:         e.decimal("INCOME_CEILING", defaults.IncomeCeiling),
			LegacyWealthThreshold: e.decimal("LEGACY_WEALTH_THRESHOLD", defaults.LegacyWealthThreshold),
			TrailingWindowMonths:  e.integer("TRAILING_WINDOW_MONTHS", defaults.TrailingWindowMonths),
			TreasurySalaryAccount: e.str("TREASURY_SALARY_ACCOUNT", defaults.TreasurySalaryAccount),
			Eligibility: rules.Eligibility{
				Genders: e.list("ELIGIBLE_GENDERS", defaults.Eligibility.Genders),
				MinAge:  e.integer("MIN_AGE", defaults.Eligibility.MinAge),
				MaxAge:  e.integer("MAX_AGE", defaults.Eligibility.MaxAge),
			},
		},
		RingDegreeThreshold: e.integer("RING_DEGREE_THRESHOLD", graph.DefaultDegreeThreshold),
		AdvisoryScorer:      e.boolean("ADVISORY_SCORER", false),
	}

	if err := errors.Join(append(e.errs, cfg.validate()...)...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if c.Thresholds.TrailingWindowMonths <= 0 {
		errs = append(errs, errors.New("TRAILING_WINDOW_MONTHS must be positive"))
	}
	if c.RingDegreeThreshold < 1 {
		errs = append(errs, errors.New("RING_DEGREE_THRESHOLD must be at least 1"))
	}
	if c.Sweep.Penalty < 0 || c.Sweep.Penalty > 1 {
		errs = append(errs, errors.New("SWEEP_PENALTY must be within [0, 1]"))
	}
	if el := c.Thresholds.Eligibility; el.MinAge > 0 && el.MaxAge > 0 && el.MinAge > el.MaxAge {
		errs = append(errs, fmt.Errorf("MIN_AGE %d exceeds MAX_AGE %d", el.MinAge, el.MaxAge))
	}
	return errs
}

// env reads typed variables and collects parse errors.
type env struct {
	errs []error
}

func (e *env) str(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (e *env) integer(key string, fallback int) int {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (e *env) float(key string, fallback float64) float64 {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (e *env) boolean(key string, fallback bool) bool {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (e *env) decimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (e *env) list(key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// lookup returns a trimmed, non-empty variable.
func lookup(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}
