package decisions

import (
	"errors"
	"testing"
	"time"
)

type countingCache struct {
	ProgramCache
	sets int
}

func (c *countingCache) Set(key string, value any) {
	c.sets++
	c.ProgramCache.Set(key, value)
}

func directiveCtx() DirectiveContext {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return DirectiveContext{
		Node:     Mapping{"value": 18.0, "target": 20.0, "status": "amber"},
		Path:     "kpis.attrition",
		Field:    "value",
		Current:  18.0,
		Scenario: "attrition_spike",
		Now:      &now,
		Args:     map[string]any{"factor": 2.0},
	}
}

func TestExprEvaluator(t *testing.T) {
	evaluator := NewExprEvaluator(ExprWithFunctionRegistry(DirectiveFunctions()))
	cases := []struct {
		expr string
		want any
	}{
		{expr: "current + 2", want: 20.0},
		{expr: "clamp(current * args.factor, 0, target)", want: 20.0},
		{expr: "call('round_to', 1.234, 1)", want: 1.2},
		{expr: "pct_change(current, 50)", want: 27.0},
		{expr: "status == 'amber' && field == 'value'", want: true},
		{expr: "path + '.' + field", want: "kpis.attrition.value"},
	}
	for _, tc := range cases {
		got, err := evaluator.Evaluate(directiveCtx(), tc.expr)
		if err != nil {
			t.Fatalf("%s: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", tc.expr, tc.want, tc.want, got, got)
		}
	}
}

func TestExprEvaluatorErrors(t *testing.T) {
	evaluator := NewExprEvaluator(ExprWithFunctionRegistry(DirectiveFunctions()))

	_, err := evaluator.Evaluate(directiveCtx(), "clamp(current, 10, 1)")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Engine != EngineExpr || evalErr.Site != "attrition_spike:kpis.attrition.value" {
		t.Fatalf("unexpected metadata: %+v", evalErr)
	}

	if _, err := evaluator.Compile("current +"); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := evaluator.Evaluate(directiveCtx(), ""); err == nil {
		t.Fatalf("expected empty expression error")
	}
}

func TestExprEvaluatorCachesPrograms(t *testing.T) {
	cache := &countingCache{ProgramCache: NewProgramCache()}
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))

	for i := 0; i < 3; i++ {
		if _, err := evaluator.Evaluate(directiveCtx(), "current * 2"); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	compiled, err := evaluator.Compile("current * 2")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := compiled.Evaluate(directiveCtx())
	if err != nil {
		t.Fatalf("compiled evaluate: %v", err)
	}
	if got != 36.0 {
		t.Fatalf("expected 36, got %v", got)
	}
	if cache.sets != 1 {
		t.Fatalf("expected a single compilation, got %d", cache.sets)
	}
}

func TestCELEvaluator(t *testing.T) {
	evaluator := NewCELEvaluator(CELWithFunctionRegistry(DirectiveFunctions()))
	cases := []struct {
		expr string
		want any
	}{
		{expr: "current * 1.5", want: 27.0},
		{expr: "current + args.factor", want: 20.0},
		{expr: "call('clamp', [current * 2.0, 0.0, target])", want: 20.0},
		{expr: "status == 'amber' ? target : current", want: 20.0},
		{expr: "scenario + ':' + field", want: "attrition_spike:value"},
	}
	for _, tc := range cases {
		got, err := evaluator.Evaluate(directiveCtx(), tc.expr)
		if err != nil {
			t.Fatalf("%s: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", tc.expr, tc.want, tc.want, got, got)
		}
	}
}

func TestCELEvaluatorWidensIntegers(t *testing.T) {
	ctx := directiveCtx()
	ctx.Current = 10
	ctx.Node = Mapping{"value": 10}

	got, err := NewCELEvaluator().Evaluate(ctx, "current * 0.5")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != 5.0 {
		t.Fatalf("expected 5, got %v", got)
	}
}

func TestCELEvaluatorErrors(t *testing.T) {
	evaluator := NewCELEvaluator()
	if _, err := evaluator.Compile("current *"); err == nil {
		t.Fatalf("expected parse error")
	}
	_, err := evaluator.Evaluate(directiveCtx(), "call('clamp', [1.0])")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != EngineCEL {
		t.Fatalf("expected CEL EvaluationError without registry, got %v", err)
	}
}

func TestNewEvaluator(t *testing.T) {
	for _, engine := range []string{"", "expr", " CEL "} {
		evaluator, err := NewEvaluator(engine, NewProgramCache(), DirectiveFunctions())
		if err != nil {
			t.Fatalf("%q: %v", engine, err)
		}
		got, err := evaluator.Evaluate(directiveCtx(), "current * 2.0")
		if err != nil {
			t.Fatalf("%q evaluate: %v", engine, err)
		}
		if got != 36.0 {
			t.Fatalf("%q: expected 36, got %v", engine, got)
		}
	}
	if _, err := NewEvaluator("lua", nil, nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestEvaluatorEngineName(t *testing.T) {
	if got := evaluatorEngineName(NewExprEvaluator()); got != EngineExpr {
		t.Fatalf("expected expr, got %s", got)
	}
	if got := evaluatorEngineName(NewCELEvaluator()); got != EngineCEL {
		t.Fatalf("expected cel, got %s", got)
	}
}

func TestDirectiveContextBindingsReserveNames(t *testing.T) {
	ctx := DirectiveContext{Node: Mapping{"current": "shadowed", "value": 1.0}, Current: 1.0}
	bindings := ctx.bindings()
	if bindings["current"] != 1.0 {
		t.Fatalf("reserved names must win over node keys")
	}
	if _, ok := bindings["now"].(time.Time); !ok {
		t.Fatalf("expected now to default to a timestamp")
	}
}
