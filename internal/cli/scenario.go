package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-decisions"
)

func newScenariosCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenario catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			registry, err := app.Registry()
			if err != nil {
				return WrapExitError(ExitCommandError, "load scenarios", err)
			}
			scenarios := registry.List()
			return out.Success(scenarios, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tLABEL\tSCOPE\tREVERSIBLE")
				for _, s := range scenarios {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.ID, s.Label, strings.Join(s.Scope, ","), s.Reversible)
				}
				return tw.Flush()
			})
		},
	}
	return cmd
}

type scenarioOptions struct {
	*RootOptions
	Client   string
	Scenario string
	IfMatch  string
}

func scenarioFailure(err error) error {
	if errors.Is(err, decisions.ErrScenarioNotFound) {
		return WrapExitError(ExitCommandError, "unknown scenario", err)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return WrapExitError(ExitFailure, "scenario failed", err)
}

func newApplyCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &scenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a scenario to a context",
		Long: `Apply a scenario from the catalog, replacing any scenario already active.
Adjustment directives in the scenario are evaluated against the effective
view without the previous scenario.

Examples:
  decisionctx apply --client orion --scenario attrition_spike
  decisionctx apply --client orion --scenario sentiment_drop --if-match <etag>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			registry, err := app.Registry()
			if err != nil {
				return WrapExitError(ExitCommandError, "load scenarios", err)
			}
			scenarioOpts, err := app.ScenarioOptions()
			if err != nil {
				return WrapExitError(ExitCommandError, "configure scenarios", err)
			}
			boundary := decisions.NewScenarioBoundary(registry, scenarioOpts...)
			actor := app.actor(opts.Actor, decisions.DefaultScenarioActor)

			c, meta, err := app.mutate(cmd.Context(), opts.Client, opts.IfMatch, func(c *decisions.Context) error {
				return boundary.Apply(c, opts.Scenario, actor)
			})
			if err != nil {
				return scenarioFailure(err)
			}
			summary := summarize(c, meta)
			out.VerboseLog("saved %s", summary.ETag)
			return out.Success(summary, func(w io.Writer) error {
				summary.writeText(w)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario id (required)")
	cmd.Flags().StringVar(&opts.IfMatch, "if-match", "", "only apply when the stored etag matches")
	requireFlags(cmd, "client", "scenario")
	return cmd
}

func newClearCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &scenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the active scenario from a context",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			registry, err := app.Registry()
			if err != nil {
				return WrapExitError(ExitCommandError, "load scenarios", err)
			}
			boundary := decisions.NewScenarioBoundary(registry)
			actor := app.actor(opts.Actor, decisions.DefaultScenarioActor)

			c, meta, err := app.mutate(cmd.Context(), opts.Client, opts.IfMatch, func(c *decisions.Context) error {
				return boundary.Clear(c, actor)
			})
			if err != nil {
				return scenarioFailure(err)
			}
			summary := summarize(c, meta)
			return out.Success(summary, func(w io.Writer) error {
				summary.writeText(w)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().StringVar(&opts.IfMatch, "if-match", "", "only clear when the stored etag matches")
	requireFlags(cmd, "client")
	return cmd
}

// project runs a what-if simulation without saving anything.
func (a *App) project(cmd *cobra.Command, clientID, scenarioID string) (*decisions.Context, decisions.Mapping, error) {
	c, _, err := a.load(cmd.Context(), clientID)
	if err != nil {
		return nil, nil, err
	}
	registry, err := a.Registry()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load scenarios", err)
	}
	scenarioOpts, err := a.ScenarioOptions()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "configure scenarios", err)
	}
	projected, err := decisions.NewSimulator(registry, scenarioOpts...).Simulate(c, scenarioID)
	if err != nil {
		return nil, nil, scenarioFailure(err)
	}
	return c, projected, nil
}

func newSimulateCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &scenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Project a scenario without changing the context",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			_, projected, err := app.project(cmd, opts.Client, opts.Scenario)
			if err != nil {
				return err
			}
			return out.Success(projected, nil)
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario id (required)")
	requireFlags(cmd, "client", "scenario")
	return cmd
}

// CompareResult is the output of the compare command.
type CompareResult struct {
	Scenario string                  `json:"scenario"`
	Deltas   []decisions.DeltaRecord `json:"deltas"`
	Summary  decisions.DeltaSummary  `json:"summary"`
}

func newCompareCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &scenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare KPIs between the effective view and a scenario",
		Long: `Simulate a scenario and report how each KPI moves against the current
effective view. KPIs are listed in baseline order.

Examples:
  decisionctx compare --client orion --scenario attrition_spike
  decisionctx compare --client orion --scenario attrition_spike --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			c, projected, err := app.project(cmd, opts.Client, opts.Scenario)
			if err != nil {
				return err
			}
			deltas := decisions.ComputeDeltas(c.Effective(), projected, decisions.WithDeltaOrder(c.Meta().KPIOrder...))
			result := CompareResult{
				Scenario: opts.Scenario,
				Deltas:   deltas,
				Summary:  decisions.SummarizeDeltas(deltas),
			}
			return out.Success(result, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KPI\tBASELINE\tSCENARIO\tDELTA\tSIGNAL")
				for _, d := range deltas {
					paint := out.paint(d.Direction)
					fmt.Fprintf(tw, "%s\t%g\t%g\t%s\t%s\n", d.KPI, d.Baseline, d.Scenario, paint(fmt.Sprintf("%+g", d.Delta)), d.Signal)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				s := result.Summary
				fmt.Fprintf(w, "up %d, down %d, flat %d\n", s.Up, s.Down, s.Flat)
				if s.Strongest != nil {
					fmt.Fprintf(w, "strongest mover: %s (%+g, %s)\n", s.Strongest.KPI, s.Strongest.Delta, s.Strongest.Signal)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario id (required)")
	requireFlags(cmd, "client", "scenario")
	return cmd
}
