package decisions

import (
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-decisions/layering"
)

// ScenarioOption configures a ScenarioBoundary or Simulator.
type ScenarioOption func(*scenarioConfig)

type scenarioConfig struct {
	strict    bool
	logger    *slog.Logger
	evaluator Evaluator
	evalLog   EvaluatorLogger
	precision int
	args      map[string]any
	now       func() time.Time
	maxDepth  int
}

func applyScenarioOptions(opts []ScenarioOption) scenarioConfig {
	cfg := scenarioConfig{precision: DefaultDirectivePrecision}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger()
	}
	if cfg.evaluator == nil {
		cfg.evaluator = defaultEvaluator()
	}
	if cfg.evalLog == nil {
		cfg.evalLog = noopEvaluatorLogger{}
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.maxDepth <= 0 {
		cfg.maxDepth = layering.DefaultMaxDepth
	}
	return cfg
}

// WithStrictScenarios makes unknown scenario ids fail with
// ErrScenarioNotFound instead of being treated as a no-op.
func WithStrictScenarios(strict bool) ScenarioOption {
	return func(cfg *scenarioConfig) {
		cfg.strict = strict
	}
}

// WithScenarioLogger sets the structured logger.
func WithScenarioLogger(logger *slog.Logger) ScenarioOption {
	return func(cfg *scenarioConfig) {
		cfg.logger = logger
	}
}

// WithScenarioEvaluator sets the evaluator used for _expr directives.
func WithScenarioEvaluator(evaluator Evaluator) ScenarioOption {
	return func(cfg *scenarioConfig) {
		cfg.evaluator = evaluator
	}
}

// WithEvaluatorLogger records every directive evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) ScenarioOption {
	return func(cfg *scenarioConfig) {
		cfg.evalLog = logger
	}
}

// WithDirectivePrecision sets the decimals kept by computed values.
func WithDirectivePrecision(places int) ScenarioOption {
	return func(cfg *scenarioConfig) {
		if places >= 0 {
			cfg.precision = places
		}
	}
}

// WithDirectiveArgs exposes args to _expr directives as the args variable.
func WithDirectiveArgs(args map[string]any) ScenarioOption {
	return func(cfg *scenarioConfig) {
		cfg.args = maps.Clone(args)
	}
}

// WithScenarioClock overrides the now binding seen by _expr directives.
func WithScenarioClock(now func() time.Time) ScenarioOption {
	return func(cfg *scenarioConfig) {
		cfg.now = now
	}
}

// WithScenarioMaxDepth caps directive nesting.
func WithScenarioMaxDepth(depth int) ScenarioOption {
	return func(cfg *scenarioConfig) {
		cfg.maxDepth = depth
	}
}

// scenarioSource couples a registry with directive resolution. It is shared
// by the boundary and the simulator so both read scenarios the same way.
type scenarioSource struct {
	registry ScenarioRegistry
	cfg      scenarioConfig
}

func newScenarioSource(registry ScenarioRegistry, opts []ScenarioOption) scenarioSource {
	return scenarioSource{registry: registry, cfg: applyScenarioOptions(opts)}
}

// lookup returns the scenario for id. found is false for unknown ids, in
// which case err is ErrScenarioNotFound under the strict policy.
func (s scenarioSource) lookup(id string) (Scenario, bool, error) {
	if s.registry == nil {
		return Scenario{}, false, ErrRegistryRequired
	}
	id = strings.TrimSpace(id)
	scenario, ok := s.registry.Lookup(id)
	if ok {
		return scenario, true, nil
	}
	if s.cfg.strict {
		return Scenario{}, false, scenarioNotFound(id)
	}
	s.cfg.logger.Warn("unknown scenario ignored", "scenario", id)
	return Scenario{}, false, nil
}

func (s scenarioSource) materialize(scenario Scenario, base Mapping) (Mapping, error) {
	resolver := directiveResolver{
		evaluator: s.cfg.evaluator,
		evalLog:   s.cfg.evalLog,
		logger:    s.cfg.logger,
		precision: s.cfg.precision,
		args:      s.cfg.args,
		now:       s.cfg.now,
		maxDepth:  s.cfg.maxDepth,
	}
	return resolver.materialize(scenario.ID, scenario.Changes, base)
}
