package decisions

import (
	"fmt"
	"testing"
	"time"
)

var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// testClock advances one second per call so timestamps are ordered.
func testClock() func() time.Time {
	tick := 0
	return func() time.Time {
		tick++
		return testEpoch.Add(time.Duration(tick) * time.Second)
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func testOptions(extra ...Option) []Option {
	opts := []Option{WithClock(testClock()), WithIDGenerator(sequentialIDs("id"))}
	return append(opts, extra...)
}

func demoBaseline() Mapping {
	return Mapping{
		"persona": "CFO",
		"strategy": map[string]any{
			"posture":      "cost",
			"horizon_days": 90,
		},
		"kpis": map[string]any{
			"attrition":             map[string]any{"value": 18.0, "status": "amber"},
			"engagement":            map[string]any{"value": 64.0, "status": "moderate"},
			"manager_effectiveness": map[string]any{"value": 71.0},
		},
	}
}

func mustCreate(t *testing.T, baseline Mapping, opts ...Option) *Context {
	t.Helper()
	c, err := Create("orion", baseline, "wizard", testOptions(opts...)...)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return c
}

func kpiValue(t *testing.T, view Mapping, name string) float64 {
	t.Helper()
	value, ok := Lookup(view, "kpis."+name+".value")
	if !ok {
		t.Fatalf("kpi %s missing from %v", name, view["kpis"])
	}
	f, ok := toFloat(value)
	if !ok {
		t.Fatalf("kpi %s value not numeric: %T", name, value)
	}
	return f
}
