package decisions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoEvaluator is returned when an engine is unknown or not compiled in.
var ErrNoEvaluator = errors.New("decisions: evaluator not configured")

// NewEvaluator returns the evaluator registered for engine. The js engine
// is only available in binaries built with the js_eval tag.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		evaluator := NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
		if evaluator == nil {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

func defaultEvaluator() Evaluator {
	return NewExprEvaluator(
		ExprWithProgramCache(NewProgramCache()),
		ExprWithFunctionRegistry(DirectiveFunctions()),
	)
}

// evaluateDirective runs expr through evaluator, logging the attempt.
func evaluateDirective(evaluator Evaluator, logger EvaluatorLogger, ctx DirectiveContext, expr string) (any, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: expression must not be empty", ErrInvalidDirective)
	}
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if logger == nil {
		logger = noopEvaluatorLogger{}
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, err := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	err = wrapEvaluationError(engine, expr, ctx.label(), err)
	logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Site:     ctx.label(),
		Duration: duration,
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*decisions.exprEvaluator":
		return EngineExpr
	case "*decisions.celEvaluator":
		return EngineCEL
	case "*decisions.jsEvaluator":
		return EngineJS
	default:
		return "custom"
	}
}
