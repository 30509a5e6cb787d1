package layering

import (
	"errors"
	"testing"
)

func TestDepth(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  int
	}{
		{name: "scalar", value: 3.5, want: 0},
		{name: "nil", value: nil, want: 0},
		{name: "flat", value: map[string]any{"a": 1}, want: 1},
		{name: "nested", value: map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}, want: 3},
		{name: "list", value: map[string]any{"a": []any{map[string]any{"b": 1}}}, want: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Depth(tc.value); got != tc.want {
				t.Fatalf("expected depth %d, got %d", tc.want, got)
			}
		})
	}
}

func TestValidateAcceptsSnapshotValues(t *testing.T) {
	value := map[string]any{
		"persona":  "CEO",
		"strategy": map[string]any{"posture": "cost", "horizon_days": 90},
		"kpis": map[string]any{
			"attrition": map[string]any{"value": 18.0, "status": "amber"},
		},
		"tags":    []string{"a", "b"},
		"enabled": true,
		"missing": nil,
	}
	if err := Validate(value, DefaultMaxDepth); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnsupported(t *testing.T) {
	if err := Validate(map[string]any{"fn": func() {}}, 0); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue for func, got %v", err)
	}
	if err := Validate(map[int]any{1: "x"}, 0); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue for int keys, got %v", err)
	}
	deep := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}
	if err := Validate(deep, 2); !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("expected ErrMaxDepth, got %v", err)
	}
}
