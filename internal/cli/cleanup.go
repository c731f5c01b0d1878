package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/scenario"
	"github.com/roach88/scenarios/pkg/template"
)

// CleanupOptions holds flags for the cleanup command.
type CleanupOptions struct {
	*RootOptions
	All bool // purge every collection the database lists
}

// CleanupResult is the output of the cleanup command.
type CleanupResult struct {
	All         bool     `json:"all"`
	Collections []string `json:"collections"`
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CleanupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the documents of the template collections",
		Long: `Delete every document in the collections registered by the templates
in --templates-path. Collections themselves are kept.

With --all, every collection the database lists is emptied, including
ones no template registers.

Examples:
  scenarios cleanup --db-name test_db
  scenarios cleanup --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "empty every collection in the database")

	return cmd
}

func runCleanup(opts *CleanupOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger(cmd)
	out := opts.formatter(cmd)

	options, err := opts.resolveOptions(cmd, logger)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to resolve options", err)
	}

	var templates template.Set
	if !opts.All {
		templates, err = template.LoadDir(options.TemplatesPath, template.WithLogger(logger))
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeTemplates, "failed to load templates", err)
		}
	}

	store, err := openStore(ctx, options)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer store.Close(ctx)

	result := CleanupResult{All: opts.All}
	if opts.All {
		result.Collections, err = store.ListCollectionNames(ctx)
		if err == nil {
			err = docstore.Purge(ctx, store)
		}
	} else {
		var builder *scenario.Builder
		builder, err = scenario.New(ctx, store, templates, scenario.WithLogger(logger))
		if err == nil {
			result.Collections = builder.Collections()
			err = builder.Cleanup(ctx)
		}
	}
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to clean collections", err)
	}
	if result.Collections == nil {
		result.Collections = []string{}
	}

	logger.Info("collections cleaned", "all", result.All, "count", len(result.Collections))

	if opts.Format == "json" {
		return out.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, name := range result.Collections {
		fmt.Fprintf(w, "cleaned %s\n", name)
	}
	fmt.Fprintf(w, "%d collection(s) cleaned\n", len(result.Collections))
	return nil
}
