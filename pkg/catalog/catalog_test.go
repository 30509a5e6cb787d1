package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-decisions"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testdataFs exposes the package testdata directory read-only.
func testdataFs(t *testing.T) afero.Fs {
	t.Helper()
	dir, err := filepath.Abs("testdata")
	require.NoError(t, err)
	return afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

func TestLoadScenarios(t *testing.T) {
	registry, err := LoadScenarios(testdataFs(t), "scenarios.yaml", decisions.NewExprEvaluator(
		decisions.ExprWithFunctionRegistry(decisions.DirectiveFunctions()),
	))
	require.NoError(t, err)

	scenarios := registry.List()
	require.Len(t, scenarios, 2)
	assert.Equal(t, "attrition_spike", scenarios[0].ID)
	assert.Equal(t, []string{"attrition"}, scenarios[0].Scope)
	assert.True(t, scenarios[0].Reversible)
	assert.False(t, scenarios[1].Reversible)

	freeze, ok := registry.Lookup("hiring_freeze")
	require.True(t, ok)
	assert.True(t, decisions.HasDirectives(freeze.Changes))
}

func TestLoadedScenarioAppliesDirectives(t *testing.T) {
	registry, err := LoadScenarios(testdataFs(t), "scenarios.yaml", nil)
	require.NoError(t, err)
	baseline, err := LoadBaseline(testdataFs(t), "baseline.yaml")
	require.NoError(t, err)

	c, err := decisions.Create("orion", baseline.Data, "", decisions.WithKPIOrder(baseline.KPIOrder...))
	require.NoError(t, err)
	require.NoError(t, decisions.NewScenarioBoundary(registry).Apply(c, "hiring_freeze", ""))

	attrition, _ := decisions.Lookup(c.Effective(), "kpis.attrition.value")
	engagement, _ := decisions.Lookup(c.Effective(), "kpis.engagement.value")
	assert.Equal(t, 20.0, attrition)
	assert.Equal(t, 61.0, engagement)
}

func TestParseScenariosErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		is   error
	}{
		{name: "not yaml", doc: "scenarios: [", is: ErrInvalidDocument},
		{name: "missing list", doc: "other: 1", is: ErrInvalidDocument},
		{name: "missing changes", doc: "scenarios:\n  - id: a\n", is: ErrInvalidDocument},
		{name: "missing id", doc: "scenarios:\n  - changes: {}\n", is: decisions.ErrInvalidScenario},
		{name: "duplicate id", doc: "scenarios:\n  - id: a\n    changes: {}\n  - id: a\n    changes: {}\n", is: decisions.ErrDuplicateScenario},
		{name: "bad expression", doc: "scenarios:\n  - id: a\n    changes:\n      kpi:\n        value_expr: 'current +'\n"},
		{name: "non string expression", doc: "scenarios:\n  - id: a\n    changes:\n      kpi:\n        value_expr: 3\n", is: decisions.ErrInvalidDirective},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScenarios([]byte(tc.doc), decisions.NewExprEvaluator())
			require.Error(t, err)
			if tc.is != nil {
				assert.True(t, errors.Is(err, tc.is), "got %v", err)
			}
		})
	}
}

func TestLoadScenariosMissingFile(t *testing.T) {
	_, err := LoadScenarios(afero.NewMemMapFs(), "/nope.yaml", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadBaselineKeepsKPIOrder(t *testing.T) {
	baseline, err := LoadBaseline(testdataFs(t), "baseline.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"manager_effectiveness", "attrition", "engagement"}, baseline.KPIOrder)
	assert.Equal(t, "CFO", baseline.Data["persona"])
	horizon, _ := decisions.Lookup(baseline.Data, "strategy.horizon_days")
	assert.Equal(t, 90, horizon)
}

func TestLoadBaselineJSON(t *testing.T) {
	baseline, err := LoadBaseline(testdataFs(t), "baseline.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"engagement", "attrition"}, baseline.KPIOrder)
	status, _ := decisions.Lookup(baseline.Data, "kpis.attrition.status")
	assert.Equal(t, "amber", status)
}

func TestParseBaselineErrors(t *testing.T) {
	for _, doc := range []string{"", "- a\n- b\n", "just text", "a: [1"} {
		_, err := ParseBaseline([]byte(doc))
		assert.True(t, errors.Is(err, ErrInvalidDocument), "doc %q: %v", doc, err)
	}
}

func TestParseBaselineWithoutKPIs(t *testing.T) {
	baseline, err := ParseBaseline([]byte("persona: CFO\n"))
	require.NoError(t, err)
	assert.Nil(t, baseline.KPIOrder)
}
