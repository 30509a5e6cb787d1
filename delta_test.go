package decisions

import (
	"reflect"
	"testing"
)

func kpis(values map[string]any) Mapping {
	return Mapping{"kpis": values}
}

func TestComputeDeltasClassification(t *testing.T) {
	baseline := kpis(map[string]any{
		"attrition":  map[string]any{"value": 10.0},
		"engagement": map[string]any{"value": 50.0},
		"nps":        map[string]any{"value": 20.0},
		"retention":  map[string]any{"value": 80.0},
	})
	scenario := kpis(map[string]any{
		"attrition":  map[string]any{"value": 12.5},
		"engagement": map[string]any{"value": 62.0},
		"nps":        map[string]any{"value": 20.0},
		"retention":  map[string]any{"value": 77.0},
	})

	got := ComputeDeltas(baseline, scenario)
	want := []DeltaRecord{
		{KPI: "attrition", Baseline: 10, Scenario: 12.5, Delta: 2.5, Direction: DirectionUp, Signal: SignalWeak},
		{KPI: "engagement", Baseline: 50, Scenario: 62, Delta: 12, Direction: DirectionUp, Signal: SignalStrong},
		{KPI: "nps", Baseline: 20, Scenario: 20, Delta: 0, Direction: DirectionFlat, Signal: SignalNone},
		{KPI: "retention", Baseline: 80, Scenario: 77, Delta: -3, Direction: DirectionDown, Signal: SignalModerate},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected deltas:\n got %+v\nwant %+v", got, want)
	}
}

func TestClassifySignalBoundaries(t *testing.T) {
	cases := []struct {
		delta float64
		want  Signal
	}{
		{delta: 0, want: SignalNone},
		{delta: 0.01, want: SignalWeak},
		{delta: -2.99, want: SignalWeak},
		{delta: 3, want: SignalModerate},
		{delta: -9.99, want: SignalModerate},
		{delta: 10, want: SignalStrong},
		{delta: -42, want: SignalStrong},
	}
	for _, tc := range cases {
		if got := ClassifySignal(tc.delta); got != tc.want {
			t.Fatalf("ClassifySignal(%v) = %s, want %s", tc.delta, got, tc.want)
		}
	}
}

func TestComputeDeltasClassifiesUnroundedDifference(t *testing.T) {
	baseline := kpis(map[string]any{"a": 10.0, "b": 10.0})
	scenario := kpis(map[string]any{"a": 12.996, "b": 10.004})

	got := ComputeDeltas(baseline, scenario, WithDeltaOrder("a", "b"))
	if len(got) != 2 {
		t.Fatalf("expected two records, got %d", len(got))
	}
	if got[0].Delta != 3 || got[0].Direction != DirectionUp || got[0].Signal != SignalWeak {
		t.Fatalf("2.996 should report delta 3 but grade weak, got %+v", got[0])
	}
	if got[1].Delta != 0 || got[1].Direction != DirectionUp || got[1].Signal != SignalWeak {
		t.Fatalf("sub-cent rise should read up/weak with delta 0, got %+v", got[1])
	}
}

func TestComputeDeltasReadsTypedKPIMappings(t *testing.T) {
	baseline := Mapping{"kpis": map[string]map[string]float64{
		"attrition": {"value": 18},
	}}
	scenario := Mapping{"kpis": map[string]any{
		"attrition": map[string]float64{"value": 22.5},
	}}

	got := ComputeDeltas(baseline, scenario)
	if len(got) != 1 || got[0].KPI != "attrition" || got[0].Delta != 4.5 {
		t.Fatalf("typed KPI mappings should be compared, got %+v", got)
	}
}

func TestComputeDeltasSkipsUnusableKPIs(t *testing.T) {
	baseline := kpis(map[string]any{
		"attrition": map[string]any{"value": 18.0},
		"dropped":   map[string]any{"value": 1.0},
		"label":     map[string]any{"value": "n/a"},
		"empty":     map[string]any{"status": "green"},
		"scalar":    40,
	})
	scenario := kpis(map[string]any{
		"attrition": map[string]any{"value": 22.5},
		"label":     map[string]any{"value": 3.0},
		"empty":     map[string]any{"value": 3.0},
		"scalar":    42.5,
		"extra":     map[string]any{"value": 9.0},
	})

	got := ComputeDeltas(baseline, scenario)
	names := make([]string, 0, len(got))
	for _, record := range got {
		names = append(names, record.KPI)
	}
	if !reflect.DeepEqual(names, []string{"attrition", "scalar"}) {
		t.Fatalf("unexpected kpis: %v", names)
	}
	if got[1].Delta != 2.5 {
		t.Fatalf("expected scalar delta 2.5, got %v", got[1].Delta)
	}
}

func TestComputeDeltasOrdering(t *testing.T) {
	view := kpis(map[string]any{
		"b": 1.0, "a": 1.0, "d": 1.0, "c": 1.0,
	})

	got := ComputeDeltas(view, view, WithDeltaOrder("d", "missing", "b"))
	names := make([]string, 0, len(got))
	for _, record := range got {
		names = append(names, record.KPI)
	}
	if !reflect.DeepEqual(names, []string{"d", "b", "a", "c"}) {
		t.Fatalf("unexpected order: %v", names)
	}
}

func TestComputeDeltasWithoutKPIs(t *testing.T) {
	got := ComputeDeltas(Mapping{"persona": "CFO"}, kpis(map[string]any{"a": 1.0}))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestComputeDeltasFromSimulation(t *testing.T) {
	c := mustCreate(t, demoBaseline(), WithKPIOrder("manager_effectiveness"))
	projected, err := NewSimulator(DefaultScenarios()).Simulate(c, "attrition_spike")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	got := ComputeDeltas(c.Effective(), projected, WithDeltaOrder(c.Meta().KPIOrder...))
	if len(got) != 3 || got[0].KPI != "manager_effectiveness" {
		t.Fatalf("unexpected records: %+v", got)
	}
	attrition := got[1]
	if attrition.KPI != "attrition" || attrition.Delta != 4.5 || attrition.Signal != SignalModerate {
		t.Fatalf("unexpected attrition record: %+v", attrition)
	}
}

func TestSummarizeDeltas(t *testing.T) {
	records := []DeltaRecord{
		{KPI: "a", Delta: 2, Direction: DirectionUp},
		{KPI: "b", Delta: -5, Direction: DirectionDown},
		{KPI: "c", Delta: 5, Direction: DirectionUp},
		{KPI: "d", Delta: 0, Direction: DirectionFlat},
	}
	summary := SummarizeDeltas(records)
	if summary.Up != 2 || summary.Down != 1 || summary.Flat != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.Strongest == nil || summary.Strongest.KPI != "b" {
		t.Fatalf("expected first of tied movers, got %+v", summary.Strongest)
	}

	flat := SummarizeDeltas([]DeltaRecord{{KPI: "x", Direction: DirectionFlat}})
	if flat.Strongest != nil {
		t.Fatalf("flat report has no strongest mover")
	}
}
