package decisions

import "time"

// DefaultJSTimeout bounds a single directive script run by the js engine.
const DefaultJSTimeout = 250 * time.Millisecond

// JSEvaluatorOption configures the js engine. The options are available in
// every build; they only take effect when the js_eval tag is set.
type JSEvaluatorOption func(*jsEvaluatorConfig)

type jsEvaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
	timeout  time.Duration
}

// JSWithProgramCache shares compiled scripts through cache, keyed by engine
// and expression like the other engines.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) { cfg.cache = cache }
}

// JSWithFunctionRegistry exposes the registry's functions to scripts, both
// as globals and through call(name, ...). The registry is copied.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		if registry != nil {
			cfg.registry = registry.Clone()
		}
	}
}

// JSWithTimeout interrupts scripts still running after d. Zero or negative
// values keep DefaultJSTimeout.
func JSWithTimeout(d time.Duration) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

func applyJSEvaluatorOptions(opts []JSEvaluatorOption) jsEvaluatorConfig {
	cfg := jsEvaluatorConfig{timeout: DefaultJSTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
