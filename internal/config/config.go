// Package config loads process configuration from DECISIONS_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-decisions"
	"github.com/goliatone/go-decisions/pkg/activity"
)

// EnvPrefix prefixes every variable read by Load.
const EnvPrefix = "DECISIONS_"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrInvalidConfig reports a value outside its accepted set.
var ErrInvalidConfig = errors.New("config: invalid value")

// Config is the CLI process configuration.
type Config struct {
	Backend    string `env:"BACKEND" envDefault:"file"`
	StateDir   string `env:"STATE_DIR" envDefault:".decisions"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:".decisions/decisions.db"`
	// Scenarios is an optional catalog file; the built-in catalog is used
	// when empty.
	Scenarios       string          `env:"SCENARIOS"`
	Engine          string          `env:"ENGINE" envDefault:"expr"`
	StrictScenarios bool            `env:"STRICT_SCENARIOS" envDefault:"true"`
	Actor           string          `env:"ACTOR"`
	LogLevel        string          `env:"LOG_LEVEL" envDefault:"warn"`
	MaxDepth        int             `env:"MAX_DEPTH" envDefault:"32"`
	Precision       int             `env:"PRECISION" envDefault:"2"`
	Activity        activity.Config `envPrefix:"ACTIVITY_"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values and bounds.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{BackendFile, BackendSQLite, BackendMemory}, c.Backend) {
		errs = append(errs, fmt.Errorf("%w: backend %q", ErrInvalidConfig, c.Backend))
	}
	if !slices.Contains([]string{decisions.EngineExpr, decisions.EngineCEL, decisions.EngineJS}, strings.ToLower(c.Engine)) {
		errs = append(errs, fmt.Errorf("%w: engine %q", ErrInvalidConfig, c.Engine))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("%w: max depth %d", ErrInvalidConfig, c.MaxDepth))
	}
	if c.Precision < 0 {
		errs = append(errs, fmt.Errorf("%w: precision %d", ErrInvalidConfig, c.Precision))
	}
	return errors.Join(errs...)
}

// Level returns the configured slog level.
func (c Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// NewLogger builds a text logger writing to w at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, value)
	}
	return level, nil
}
