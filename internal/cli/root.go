package cli

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Actor   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the decisionctx root command.
func NewRootCommand(app *App) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "decisionctx",
		Short: "Manage decision contexts",
		Long: `Create decision contexts from a baseline, layer scenarios and manual
overrides on top of it, and compare what-if projections against the
effective view.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "", "actor recorded in the history (default $DECISIONS_ACTOR)")

	cmd.AddCommand(newInitCommand(app, opts))
	cmd.AddCommand(newShowCommand(app, opts))
	cmd.AddCommand(newHistoryCommand(app, opts))
	cmd.AddCommand(newTraceCommand(app, opts))
	cmd.AddCommand(newFieldsCommand(app, opts))
	cmd.AddCommand(newScenariosCommand(app, opts))
	cmd.AddCommand(newApplyCommand(app, opts))
	cmd.AddCommand(newClearCommand(app, opts))
	cmd.AddCommand(newSimulateCommand(app, opts))
	cmd.AddCommand(newCompareCommand(app, opts))
	cmd.AddCommand(newOverrideCommand(app, opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		Color:     !color.NoColor,
	}
}

func requireFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		_ = cmd.MarkFlagRequired(name)
	}
}
