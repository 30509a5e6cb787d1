package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-decisions"
)

func newOverrideCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage manual overrides",
	}
	cmd.AddCommand(newOverrideAddCommand(app, rootOpts))
	cmd.AddCommand(newOverrideRemoveCommand(app, rootOpts))
	cmd.AddCommand(newOverrideListCommand(app, rootOpts))
	return cmd
}

type overrideOptions struct {
	*RootOptions
	Client  string
	File    string
	Label   string
	ID      string
	IfMatch string
}

// readChanges decodes a YAML or JSON mapping of override changes.
func readChanges(fsys afero.Fs, path string) (decisions.Mapping, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	var changes decisions.Mapping
	if err := yaml.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if changes == nil {
		return nil, fmt.Errorf("%s: changes must be a mapping", path)
	}
	return changes, nil
}

func overrideFailure(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if errors.Is(err, decisions.ErrOverrideNotFound) {
		return WrapExitError(ExitCommandError, "unknown override", err)
	}
	return WrapExitError(ExitFailure, "override rejected", err)
}

func newOverrideAddCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &overrideOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a manual override from a changes file",
		Long: `Append a manual override whose changes are read from a YAML or JSON
mapping. Top-level keys must already exist in the baseline.

Examples:
  decisionctx override add --client orion --file ./persona.yaml --label "Board review"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			changes, err := readChanges(app.Fs, opts.File)
			if err != nil {
				return WrapExitError(ExitCommandError, "read changes", err)
			}
			label := opts.Label
			if label == "" {
				label = "Manual override"
			}
			actor := app.actor(opts.Actor, decisions.DefaultActor)

			var applied decisions.Override
			c, meta, err := app.mutate(cmd.Context(), opts.Client, opts.IfMatch, func(c *decisions.Context) error {
				o, err := c.ApplyOverride(decisions.OverrideInput{
					ID:      opts.ID,
					Type:    decisions.OverrideManual,
					Label:   label,
					Changes: changes,
				}, actor)
				applied = o
				return err
			})
			if err != nil {
				return overrideFailure(err)
			}
			summary := summarize(c, meta)
			return out.Success(applied, func(w io.Writer) error {
				fmt.Fprintf(w, "Added override %s (%s)\n", applied.ID, strings.Join(applied.AppliesTo, ","))
				summary.writeText(w)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().StringVar(&opts.File, "file", "", "YAML or JSON file with the changes (required)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "override label")
	cmd.Flags().StringVar(&opts.ID, "id", "", "override id (generated when empty)")
	cmd.Flags().StringVar(&opts.IfMatch, "if-match", "", "only add when the stored etag matches")
	requireFlags(cmd, "client", "file")
	return cmd
}

func newOverrideRemoveCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &overrideOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove"},
		Short:   "Remove an override by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			actor := app.actor(opts.Actor, decisions.DefaultActor)
			c, meta, err := app.mutate(cmd.Context(), opts.Client, opts.IfMatch, func(c *decisions.Context) error {
				return c.RemoveOverride(opts.ID, actor)
			})
			if err != nil {
				return overrideFailure(err)
			}
			summary := summarize(c, meta)
			return out.Success(summary, func(w io.Writer) error {
				fmt.Fprintf(w, "Removed override %s\n", opts.ID)
				summary.writeText(w)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "override id (required)")
	cmd.Flags().StringVar(&opts.IfMatch, "if-match", "", "only remove when the stored etag matches")
	requireFlags(cmd, "client", "id")
	return cmd
}

func newOverrideListCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &clientOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List overrides in application order",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			c, _, err := app.load(cmd.Context(), opts.Client)
			if err != nil {
				return err
			}
			overrides := c.Overrides()
			return out.Success(overrides, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tLABEL\tAPPLIES TO\tACTOR")
				for _, o := range overrides {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.Type, o.Label, strings.Join(o.AppliesTo, ","), o.Actor)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&opts.Client, "client", "", "client id (required)")
	requireFlags(cmd, "client")
	return cmd
}
