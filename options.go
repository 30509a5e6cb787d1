package decisions

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-decisions/layering"
	"github.com/goliatone/go-decisions/pkg/activity"
	"github.com/google/uuid"
)

// Option configures a Context.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	maxDepth int
	emitter  *activity.Emitter
	kpiOrder []string
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.newID == nil {
		cfg.newID = func() string { return uuid.NewString() }
	}
	if cfg.maxDepth <= 0 {
		cfg.maxDepth = layering.DefaultMaxDepth
	}
	return cfg
}

// WithLogger sets the structured logger used by the context store.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithClock overrides the time source used for meta, override and history
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = now
	}
}

// WithIDGenerator overrides how context ids and missing override ids are
// generated. Defaults to random UUIDs.
func WithIDGenerator(fn func() string) Option {
	return func(cfg *config) {
		cfg.newID = fn
	}
}

// WithMaxDepth caps how deeply baseline and override mappings may nest.
func WithMaxDepth(depth int) Option {
	return func(cfg *config) {
		cfg.maxDepth = depth
	}
}

// WithKPIOrder records the document order of baseline KPIs on the context
// meta so delta reports can follow it.
func WithKPIOrder(names ...string) Option {
	return func(cfg *config) {
		cfg.kpiOrder = cleanNames(names)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cleanNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
