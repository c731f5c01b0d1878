package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/scenarios/internal/config"
	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/docstore/stores"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scenarios CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Seed and clean MongoDB test data from templates",
		Long: `Build test data for document databases from per-collection templates.

Templates are loaded from --templates-path. Each run merges caller
overrides onto the collection template, inserts the result and can
clean every registered collection afterwards.

Options resolve in order: flag, environment variable (DB_URL, ...),
config file (scenarios.yaml/toml/json or --config), default.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	config.RegisterFlags(cmd.PersistentFlags())

	// Add subcommands
	cmd.AddCommand(NewTemplatesCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewCleanupCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// logger returns a text logger on the command's stderr. Verbose runs log at
// debug level, others only warnings and errors.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// formatter returns an OutputFormatter bound to the command's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// resolveOptions reads the harness options from the command's flags, the
// environment and the config file.
func (o *RootOptions) resolveOptions(cmd *cobra.Command, logger *slog.Logger) (config.Options, error) {
	resolved, err := config.Resolve(cmd.Flags(), config.WithLogger(logger))
	if err != nil {
		return config.Options{}, err
	}
	return resolved.Options, nil
}

func openStore(ctx context.Context, options config.Options) (docstore.Store, error) {
	return stores.Open(ctx, options.DBDriver, options.DBURL, options.DBName)
}
