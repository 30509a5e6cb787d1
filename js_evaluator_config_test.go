package decisions

import (
	"testing"
	"time"
)

func TestJSEvaluatorOptionsDefaults(t *testing.T) {
	cfg := applyJSEvaluatorOptions(nil)
	if cfg.timeout != DefaultJSTimeout || cfg.cache != nil || cfg.registry != nil {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestJSEvaluatorOptionsApply(t *testing.T) {
	cache := NewProgramCache()
	registry := DirectiveFunctions()

	cfg := applyJSEvaluatorOptions([]JSEvaluatorOption{
		JSWithProgramCache(cache),
		JSWithFunctionRegistry(registry),
		JSWithTimeout(time.Second),
		nil,
	})
	if cfg.cache != cache {
		t.Fatalf("expected cache to be kept")
	}
	if cfg.registry == nil || cfg.registry == registry {
		t.Fatalf("expected a copy of the registry, got %p", cfg.registry)
	}
	if cfg.timeout != time.Second {
		t.Fatalf("expected 1s timeout, got %s", cfg.timeout)
	}

	cfg = applyJSEvaluatorOptions([]JSEvaluatorOption{JSWithTimeout(-time.Second), JSWithFunctionRegistry(nil)})
	if cfg.timeout != DefaultJSTimeout || cfg.registry != nil {
		t.Fatalf("non-positive timeout and nil registry should be ignored: %+v", cfg)
	}
}
