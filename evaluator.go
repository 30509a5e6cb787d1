package decisions

import (
	"strings"
	"time"
)

// Engines accepted by NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// DirectiveContext carries the inputs an adjustment expression can read.
// Fields of Node are bound as top-level variables; the reserved names
// current, field, path, scenario, node, now and args shadow them.
type DirectiveContext struct {
	Node     Mapping
	Path     string
	Field    string
	Current  any
	Scenario string
	Now      *time.Time
	Args     map[string]any
}

func (ctx DirectiveContext) withDefaults() DirectiveContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Node == nil {
		ctx.Node = Mapping{}
	}
	return ctx
}

func (ctx DirectiveContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// label identifies the evaluation site in errors and logs.
func (ctx DirectiveContext) label() string {
	target := joinPath(ctx.Path, ctx.Field)
	if target == "" {
		target = "root"
	}
	if ctx.Scenario == "" {
		return target
	}
	return ctx.Scenario + ":" + target
}

// bindings returns the variables visible to an expression.
func (ctx DirectiveContext) bindings() map[string]any {
	ctx = ctx.withDefaults()
	env := make(map[string]any, len(ctx.Node)+7)
	for key, value := range ctx.Node {
		env[key] = value
	}
	env["current"] = ctx.Current
	env["field"] = ctx.Field
	env["path"] = ctx.Path
	env["scenario"] = ctx.Scenario
	env["node"] = ctx.Node
	env["now"] = *ctx.Now
	env["args"] = ctx.Args
	return env
}

// Evaluator executes directive expressions.
type Evaluator interface {
	Evaluate(ctx DirectiveContext, expr string) (any, error)
	Compile(expr string) (CompiledDirective, error)
}

// CompiledDirective is a reusable expression program.
type CompiledDirective interface {
	Evaluate(ctx DirectiveContext) (any, error)
}

func joinPath(parent, key string) string {
	switch {
	case parent == "":
		return key
	case key == "":
		return parent
	default:
		return parent + "." + key
	}
}

func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
