package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scenarios/internal/harness"
	"github.com/roach88/scenarios/pkg/scenario"
	"github.com/roach88/scenarios/pkg/template"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Reset bool // clean registered collections before seeding
}

// SeedResult is the output of the seed command.
type SeedResult struct {
	Scenario   string           `json:"scenario"`
	ScenarioID any              `json:"scenario_id"`
	Inserted   map[string][]any `json:"inserted"`
	Pass       bool             `json:"pass"`
	Errors     []string         `json:"errors,omitempty"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <scenario-file>",
		Short: "Insert one scenario file into the configured database",
		Long: `Seed the configured database with the batches of a scenario file and
evaluate its assertions against the result.

Templates come from the scenario's templates key, else --templates-path.
Scenarios without a scenario_id get a fresh UUIDv7 identifier.

Exit codes:
  0 - Seeded and all assertions held
  1 - Seeding failed or an assertion did not hold
  2 - Command error (bad scenario file, unreachable store, etc.)

Examples:
  scenarios seed ./scenarios/active_customer.yaml
  scenarios seed ./scenarios/active_customer.yaml --reset --db-name dev_db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "clean registered collections before seeding")

	return cmd
}

func runSeed(opts *SeedOptions, scenarioFile string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger(cmd)
	out := opts.formatter(cmd)

	sc, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeNotFound, "failed to load scenario", err)
	}

	options, err := opts.resolveOptions(cmd, logger)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to resolve options", err)
	}

	// A scenario with its own templates directory does not need the
	// configured one.
	var templates template.Set
	if sc.Templates == "" {
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

	hopts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithIDGenerator(scenario.UUIDGenerator{}),
		harness.WithoutState(),
	}
	if !opts.Reset {
		hopts = append(hopts, harness.WithoutReset())
	}

	result, err := harness.New(store, templates, hopts...).Run(ctx, sc)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeSeed, "failed to seed scenario", err)
	}

	seeded := SeedResult{
		Scenario:   sc.Name,
		ScenarioID: result.ScenarioID,
		Inserted:   result.Inserted,
		Pass:       result.Pass,
		Errors:     result.Errors,
	}

	if opts.Format == "json" {
		if !seeded.Pass {
			if err := out.encode(CLIResponse{
				Status: "error",
				Data:   seeded,
				Error:  &CLIError{Code: ErrCodeFailed, Message: "assertions failed"},
			}); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("scenario %s: assertions failed", sc.Name))
		}
		return out.Success(seeded)
	}

	w := cmd.OutOrStdout()
	mark := "✓"
	if !seeded.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (scenario_id %v)\n", mark, sc.Name, seeded.ScenarioID)
	for _, name := range sc.Definition().Collections() {
		fmt.Fprintf(w, "  %s: %d document(s)\n", name, len(seeded.Inserted[name]))
	}
	for _, e := range seeded.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}

	if !seeded.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s: assertions failed", sc.Name))
	}
	return nil
}
