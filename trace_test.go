package decisions

import "testing"

func TestTraceReportsEveryLayer(t *testing.T) {
	c := mustCreate(t, demoBaseline())
	if _, err := c.ApplyOverride(OverrideInput{
		ID:      "manual-1",
		Type:    OverrideManual,
		Label:   "Analyst estimate",
		Changes: Mapping{"kpis": map[string]any{"attrition": map[string]any{"value": 20.0}}},
	}, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := c.ApplyOverride(OverrideInput{
		ID:      "manual-2",
		Type:    OverrideManual,
		Changes: Mapping{"persona": "COO"},
	}, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}

	trace := c.Trace("kpis.attrition.value")
	if !trace.Found || trace.Effective != 20.0 {
		t.Fatalf("unexpected effective: %+v", trace)
	}
	if len(trace.Layers) != 3 {
		t.Fatalf("expected baseline plus two overrides, got %d", len(trace.Layers))
	}
	baseline := trace.Layers[0]
	if baseline.Source != TraceSourceBaseline || baseline.Value != 18.0 || !baseline.Found {
		t.Fatalf("unexpected baseline layer: %+v", baseline)
	}
	manual := trace.Layers[1]
	if manual.Source != "manual-1" || manual.Type != OverrideManual || manual.Label != "Analyst estimate" || manual.Value != 20.0 {
		t.Fatalf("unexpected override layer: %+v", manual)
	}
	if trace.Layers[2].Found {
		t.Fatalf("unrelated override should not report the path")
	}
}

func TestTraceMissingPath(t *testing.T) {
	c := mustCreate(t, demoBaseline())
	trace := c.Trace("kpis.nps.value")
	if trace.Found || trace.Effective != nil || len(trace.Layers) != 1 || trace.Layers[0].Found {
		t.Fatalf("unexpected trace: %+v", trace)
	}
}

func TestTraceValuesAreCopies(t *testing.T) {
	c := mustCreate(t, demoBaseline())
	trace := c.Trace("strategy")
	trace.Effective.(map[string]any)["posture"] = "growth"
	if posture, _ := Lookup(c.Effective(), "strategy.posture"); posture != "cost" {
		t.Fatalf("trace must not alias context state")
	}
}

func TestLookup(t *testing.T) {
	m := demoBaseline()
	cases := []struct {
		path  string
		want  any
		found bool
	}{
		{path: "persona", want: "CFO", found: true},
		{path: ".strategy.horizon_days.", want: 90, found: true},
		{path: "persona.name", found: false},
		{path: "kpis.unknown", found: false},
	}
	for _, tc := range cases {
		got, found := Lookup(m, tc.path)
		if found != tc.found || (found && got != tc.want) {
			t.Fatalf("Lookup(%q) = %v, %v", tc.path, got, found)
		}
	}
	if root, ok := Lookup(m, ""); !ok || len(root.(Mapping)) != 3 {
		t.Fatalf("empty path should return the mapping itself")
	}
}
