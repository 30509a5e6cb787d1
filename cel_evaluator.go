package decisions

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

var anySliceType = reflect.TypeOf([]any{})

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

// celEvaluator runs directives through cel-go. CEL has no mixed int/double
// arithmetic, so numeric bindings are widened to double and expressions
// should use double literals (current * 0.9, current + 2.0).
type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx DirectiveContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	bindings := widenNumbers(ctx.bindings())
	program, err := e.loadOrCompile(expression, bindings)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.label(), err)
	}
	out, _, err := program.program.Eval(e.activation(bindings))
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.label(), err)
	}
	return out.Value(), nil
}

// Compile checks expression syntax up front. Type checking needs the node
// variables, so it happens on first evaluation.
func (e *celEvaluator) Compile(expression string) (CompiledDirective, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, fmt.Errorf("expression must not be empty"))
	}
	env, err := e.buildEnv(nil)
	if err != nil {
		return nil, wrapEvaluatorError(EngineCEL, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	return &celCompiledDirective{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, bindings map[string]any) (*celProgram, error) {
	names := make([]string, 0, len(bindings))
	for key := range bindings {
		names = append(names, key)
	}
	sort.Strings(names)
	// Programs are checked against the declared variables, so the key
	// includes them.
	cacheKey := EngineCEL + ":" + strings.Join(names, ",") + "|" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(cacheKey, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(names []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.BinaryBinding(e.callBinding()),
		)))
	}
	for _, name := range names {
		if name == "now" {
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(bindings map[string]any) map[string]any {
	activation := make(map[string]any, len(bindings))
	for key, value := range bindings {
		activation[key] = value
	}
	return activation
}

type celCompiledDirective struct {
	evaluator  *celEvaluator
	expression string
}

func (d *celCompiledDirective) Evaluate(ctx DirectiveContext) (any, error) {
	return d.evaluator.Evaluate(ctx, d.expression)
}

// callBinding backs call("name", [args...]).
func (e *celEvaluator) callBinding() functions.BinaryOp {
	return func(nameVal, argsVal ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("decisions: function registry not configured")
		}
		name, ok := nameVal.Value().(string)
		if !ok {
			return types.NewErr("decisions: call name must be string")
		}
		native, err := argsVal.ConvertToNative(anySliceType)
		if err != nil {
			return types.NewErr("decisions: call arguments: %v", err)
		}
		result, err := e.registry.Call(name, native.([]any)...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

// widenNumbers converts integer values to float64, recursing into maps and
// lists, and returns a new map.
func widenNumbers(bindings map[string]any) map[string]any {
	out := make(map[string]any, len(bindings))
	for key, value := range bindings {
		out[key] = widenValue(value)
	}
	return out
}

func widenValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return widenNumbers(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = widenValue(item)
		}
		return out
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		f, _ := toFloat(typed)
		return f
	default:
		return value
	}
}
