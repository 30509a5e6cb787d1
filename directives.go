package decisions

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/goliatone/go-decisions/layering"
)

// Directive suffixes. A change key "<field><suffix>" adjusts field relative
// to its value in the view the scenario is applied to.
const (
	DirectiveMultiplier = "_multiplier"
	DirectiveDelta      = "_delta"
	DirectiveExpr       = "_expr"
)

// DefaultDirectivePrecision is the number of decimals computed values keep.
const DefaultDirectivePrecision = 2

// directiveResolver turns relative adjustments into concrete values.
// Resolved overrides only ever store concrete values, so resolving an
// effective view never has to evaluate anything.
type directiveResolver struct {
	evaluator Evaluator
	evalLog   EvaluatorLogger
	logger    *slog.Logger
	precision int
	args      map[string]any
	now       func() time.Time
	maxDepth  int
}

type directive struct {
	field  string
	suffix string
}

// parseDirective reports whether key is a directive. A key that exists
// verbatim in the base node is a plain field, never a directive.
func parseDirective(key string, base Mapping) (directive, bool) {
	if _, exists := base[key]; exists {
		return directive{}, false
	}
	for _, suffix := range []string{DirectiveMultiplier, DirectiveDelta, DirectiveExpr} {
		if field, ok := strings.CutSuffix(key, suffix); ok && field != "" {
			return directive{field: field, suffix: suffix}, true
		}
	}
	return directive{}, false
}

// HasDirectives reports whether changes holds any directive key, ignoring
// the base view. Used by catalogs to decide whether to precompile.
func HasDirectives(changes Mapping) bool {
	found := false
	walkDirectives(changes, "", func(string, directive, any) { found = true })
	return found
}

func walkDirectives(changes Mapping, path string, fn func(path string, d directive, value any)) {
	for _, key := range layering.Keys(changes) {
		value := changes[key]
		if d, ok := parseDirective(key, nil); ok {
			fn(path, d, value)
			continue
		}
		if child, ok := value.(map[string]any); ok {
			walkDirectives(child, joinPath(path, key), fn)
		}
	}
}

// materialize returns a copy of changes with every directive replaced by
// the value it computes against base. Directives whose target is missing or
// not numeric are dropped; maps left empty by dropped directives are pruned.
func (r directiveResolver) materialize(scenarioID string, changes, base Mapping) (Mapping, error) {
	out, _, err := r.materializeNode(scenarioID, "", changes, base, 1)
	return out, err
}

func (r directiveResolver) materializeNode(scenarioID, path string, changes, base Mapping, depth int) (Mapping, bool, error) {
	if depth > r.maxDepth {
		return nil, false, fmt.Errorf("%w: %s", layering.ErrMaxDepth, path)
	}
	out := make(Mapping, len(changes))
	dropped := false
	for _, key := range layering.Keys(changes) {
		value := changes[key]
		if d, ok := parseDirective(key, base); ok {
			if _, explicit := changes[d.field]; explicit {
				r.logger.Debug("directive shadowed by explicit value",
					"scenario", scenarioID, "path", joinPath(path, key))
				dropped = true
				continue
			}
			computed, ok, err := r.apply(scenarioID, path, d, value, base)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				dropped = true
				continue
			}
			out[d.field] = computed
			continue
		}

		child, isMap := value.(map[string]any)
		if !isMap {
			out[key] = layering.Clone(value)
			continue
		}
		baseChild, _ := base[key].(map[string]any)
		resolved, childDropped, err := r.materializeNode(scenarioID, joinPath(path, key), child, baseChild, depth+1)
		if err != nil {
			return nil, false, err
		}
		if len(resolved) == 0 && childDropped {
			dropped = true
			continue
		}
		out[key] = resolved
	}
	return out, dropped, nil
}

func (r directiveResolver) apply(scenarioID, path string, d directive, operand any, base Mapping) (any, bool, error) {
	site := joinPath(path, d.field)
	current, exists := base[d.field]
	if !exists {
		r.logger.Debug("directive target missing", "scenario", scenarioID, "path", site)
		return nil, false, nil
	}

	switch d.suffix {
	case DirectiveMultiplier, DirectiveDelta:
		factor, ok := toFloat(operand)
		if !ok {
			return nil, false, fmt.Errorf("%w: %s%s must be numeric, got %T", ErrInvalidDirective, site, d.suffix, operand)
		}
		value, ok := toFloat(current)
		if !ok {
			r.logger.Debug("directive target not numeric", "scenario", scenarioID, "path", site)
			return nil, false, nil
		}
		if d.suffix == DirectiveMultiplier {
			return roundTo(value*factor, r.precision), true, nil
		}
		return roundTo(value+factor, r.precision), true, nil

	default:
		expr, ok := operand.(string)
		if !ok {
			return nil, false, fmt.Errorf("%w: %s%s must be a string expression, got %T", ErrInvalidDirective, site, d.suffix, operand)
		}
		now := r.now()
		result, err := evaluateDirective(r.evaluator, r.evalLog, DirectiveContext{
			Node:     base,
			Path:     path,
			Field:    d.field,
			Current:  current,
			Scenario: scenarioID,
			Now:      &now,
			Args:     r.args,
		}, expr)
		if err != nil {
			return nil, false, err
		}
		if f, ok := toFloat(result); ok {
			if _, isInt := result.(int); !isInt {
				return roundTo(f, r.precision), true, nil
			}
		}
		return result, true, nil
	}
}

func roundTo(value float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// CompileDirectives compiles every _expr directive in changes so syntax
// errors surface before a scenario is first applied.
func CompileDirectives(evaluator Evaluator, changes Mapping) error {
	if evaluator == nil {
		return ErrNoEvaluator
	}
	var errs []error
	walkDirectives(changes, "", func(path string, d directive, value any) {
		if d.suffix != DirectiveExpr {
			return
		}
		site := joinPath(path, d.field)
		expr, ok := value.(string)
		if !ok || strings.TrimSpace(expr) == "" {
			errs = append(errs, fmt.Errorf("%w: %s%s must be a string expression", ErrInvalidDirective, site, d.suffix))
			return
		}
		if _, err := evaluator.Compile(expr); err != nil {
			errs = append(errs, wrapEvaluationError(evaluatorEngineName(evaluator), expr, site, err))
		}
	})
	return errors.Join(errs...)
}
