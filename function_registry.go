package decisions

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by lower-cased name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// DirectiveFunctions returns a registry preloaded with the helpers scenario
// expressions commonly need:
//
//	clamp(x, lo, hi)     bounds x to [lo, hi]
//	round_to(x, places)  rounds half away from zero
//	pct_change(x, pct)   x * (1 + pct/100)
func DirectiveFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("clamp", func(args ...any) (any, error) {
		nums, err := numericArgs("clamp", args, 3)
		if err != nil {
			return nil, err
		}
		if nums[1] > nums[2] {
			return nil, fmt.Errorf("decisions: clamp bounds inverted: %v > %v", nums[1], nums[2])
		}
		return math.Min(math.Max(nums[0], nums[1]), nums[2]), nil
	})
	_ = r.Register("round_to", func(args ...any) (any, error) {
		nums, err := numericArgs("round_to", args, 2)
		if err != nil {
			return nil, err
		}
		return roundTo(nums[0], int(nums[1])), nil
	})
	_ = r.Register("pct_change", func(args ...any) (any, error) {
		nums, err := numericArgs("pct_change", args, 2)
		if err != nil {
			return nil, err
		}
		return nums[0] * (1 + nums[1]/100), nil
	})
	return r
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("decisions: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("decisions: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("decisions: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("decisions: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("decisions: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func numericArgs(name string, args []any, want int) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("decisions: %s expects %d arguments, got %d", name, want, len(args))
	}
	out := make([]float64, want)
	for i, arg := range args {
		f, ok := toFloat(arg)
		if !ok {
			return nil, fmt.Errorf("decisions: %s argument %d is not numeric: %T", name, i, arg)
		}
		out[i] = f
	}
	return out, nil
}
