package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-decisions"
	"github.com/goliatone/go-decisions/pkg/catalog"
	"github.com/goliatone/go-decisions/pkg/state"
	"github.com/goliatone/go-decisions/schema/openapi"
)

// ContextSummary identifies a stored context in command output.
type ContextSummary struct {
	ContextID string `json:"context_id"`
	ClientID  string `json:"client_id"`
	Version   int    `json:"version"`
	ETag      string `json:"etag,omitempty"`
	Scenario  string `json:"scenario,omitempty"`
}

func summarize(c *decisions.Context, meta state.Meta) ContextSummary {
	summary := ContextSummary{
		ContextID: c.ID(),
		ClientID:  c.ClientID(),
		Version:   c.Version(),
		ETag:      meta.ETag,
	}
	if active, ok := c.ActiveScenario(); ok {
		summary.Scenario = active.ID
	}
	return summary
}

func (s ContextSummary) writeText(w io.Writer) {
	fmt.Fprintf(w, "context %s (client %s) version %d\n", s.ContextID, s.ClientID, s.Version)
	if s.Scenario != "" {
		fmt.Fprintf(w, "active scenario: %s\n", s.Scenario)
	}
}

type initOptions struct {
	*RootOptions
	Client   string
	Baseline string
	Source   string
}

func newInitCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &initOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a context from a baseline file",
		Long: `Create a new decision context for a client from a YAML or JSON baseline.
Any context already stored for the client is replaced.

Examples:
  decisionctx init --client orion --baseline ./baseline.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			baseline, err := catalog.LoadBaseline(app.Fs, opts.Baseline)
			if err != nil {
				return WrapExitError(ExitCommandError, "load baseline", err)
			}
			sessions, err := app.Sessions(baseline.KPIOrder)
			if err != nil {
				return WrapExitError(ExitCommandError, "open store", err)
			}
			c, err := sessions.Start(cmd.Context(), opts.Client, baseline.Data, opts.Source)
			if err != nil {
				return WrapExitError(ExitFailure, "create context", err)
			}
			out.VerboseLog("kpi order: %s", strings.Join(baseline.KPIOrder, ", "))

			summary := summarize(c, state.MetaFor(c.Record(), time.Time{}))
			return out.Success(summary, func(w io.Writer) error {
				fmt.Fprintf(w, "Initialised context %s for client %s\n", summary.ContextID, summary.ClientID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().StringVar(&opts.Baseline, "baseline", "", "path to the baseline file (required)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "source recorded on the context (default \"wizard\")")
	requireFlags(cmd, "client", "baseline")

	return cmd
}

type clientOptions struct {
	*RootOptions
	Client string
}

// ShowResult is the output of the show command.
type ShowResult struct {
	ContextSummary
	Effective decisions.Mapping `json:"effective"`
}

func newShowCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &clientOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective view of a context",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			c, meta, err := app.load(cmd.Context(), opts.Client)
			if err != nil {
				return err
			}
			result := ShowResult{ContextSummary: summarize(c, meta), Effective: c.EffectiveCopy()}
			return out.Success(result, func(w io.Writer) error {
				result.writeText(w)
				return writeYAML(w, result.Effective)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	requireFlags(cmd, "client")
	return cmd
}

func newHistoryCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &clientOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the audit history of a context",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			c, _, err := app.load(cmd.Context(), opts.Client)
			if err != nil {
				return err
			}
			history := c.History()
			return out.Success(history, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TIMESTAMP\tACTOR\tACTION\tSUMMARY")
				for _, entry := range history {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						entry.Timestamp.Format(time.RFC3339), entry.Actor, entry.Action, entry.Summary)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	requireFlags(cmd, "client")
	return cmd
}

type traceOptions struct {
	*RootOptions
	Client string
	Path   string
}

func newTraceCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &traceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show which layers set a value",
		Long: `Report the baseline value of a dotted path, the contribution of every
override in application order, and the resulting effective value.

Examples:
  decisionctx trace --client orion --path kpis.attrition.value`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			c, _, err := app.load(cmd.Context(), opts.Client)
			if err != nil {
				return err
			}
			trace := c.Trace(opts.Path)
			return out.Success(trace, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SOURCE\tTYPE\tVALUE")
				for _, layer := range trace.Layers {
					value := "-"
					if layer.Found {
						value = fmt.Sprint(layer.Value)
					}
					kind := string(layer.Type)
					if kind == "" {
						kind = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", layer.Source, kind, value)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if !trace.Found {
					fmt.Fprintf(w, "%s: not set\n", trace.Path)
					return nil
				}
				fmt.Fprintf(w, "%s = %v\n", trace.Path, trace.Effective)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "dotted path to trace (required)")
	requireFlags(cmd, "client", "path")
	return cmd
}

type fieldsOptions struct {
	*RootOptions
	Client  string
	OpenAPI bool
}

func newFieldsCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &fieldsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the leaf fields of the effective view",
		Long: `List every leaf path of the effective view with its kind, or print an
OpenAPI document describing the view.

Examples:
  decisionctx fields --client orion
  decisionctx fields --client orion --openapi --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			c, _, err := app.load(cmd.Context(), opts.Client)
			if err != nil {
				return err
			}
			if opts.OpenAPI {
				doc, err := openapi.NewGenerator(
					openapi.WithInfo(fmt.Sprintf("Decision context for %s", c.ClientID()), ""),
				).ForContext(c)
				if err != nil {
					return WrapExitError(ExitFailure, "generate openapi", err)
				}
				return out.Success(doc, nil)
			}
			fields := decisions.Describe(c.Effective())
			return out.Success(fields, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "PATH\tTYPE")
				for _, field := range fields {
					fmt.Fprintf(tw, "%s\t%s\n", field.Path, field.Type)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().BoolVar(&opts.OpenAPI, "openapi", false, "print an OpenAPI document for the effective view")
	requireFlags(cmd, "client")
	return cmd
}
