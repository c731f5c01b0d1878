package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scenarios/internal/harness"
	"github.com/roach88/scenarios/pkg/template"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against an in-memory store",
		Long: `Run every scenario file in a directory against a fresh in-memory
SQLite store and check its assertions.

When <scenarios-dir>/golden/<name>.golden exists, the final state of the
touched collections must match it byte for byte. Document identifiers
are sequential (doc-1, doc-2, ...) so snapshots are stable.

Scenarios without a templates key use --templates-path.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  scenarios test ./scenarios
  scenarios test ./scenarios --filter "customer_*"
  scenarios test ./scenarios --update
  scenarios test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := harness.FindScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	r := &scenarioRunner{
		opts:   opts,
		cmd:    cmd,
		logger: opts.logger(cmd),
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		scenResult := r.run(scenarioFile)
		r.report(scenResult)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// scenarioRunner runs scenario files one by one. The configured templates
// are loaded at most once, and only when a scenario needs them.
type scenarioRunner struct {
	opts   *TestOptions
	cmd    *cobra.Command
	logger *slog.Logger

	fallback    template.Set
	fallbackErr error
	loaded      bool
}

func (r *scenarioRunner) templates() (template.Set, error) {
	if r.loaded {
		return r.fallback, r.fallbackErr
	}
	r.loaded = true

	options, err := r.opts.resolveOptions(r.cmd, r.logger)
	if err != nil {
		r.fallbackErr = fmt.Errorf("resolve options: %w", err)
		return nil, r.fallbackErr
	}
	r.fallback, r.fallbackErr = template.LoadDir(options.TemplatesPath, template.WithLogger(r.logger))
	return r.fallback, r.fallbackErr
}

// run executes a single scenario and returns the result.
func (r *scenarioRunner) run(scenarioFile string) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile))

	sc, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return failed(name, fmt.Sprintf("failed to load scenario: %v", err))
	}

	var templates template.Set
	if sc.Templates == "" {
		templates, err = r.templates()
		if err != nil {
			return failed(sc.Name, fmt.Sprintf("failed to load templates: %v", err))
		}
	}

	ctx := r.cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := harness.Run(ctx, sc, templates, harness.WithLogger(r.logger))
	if err != nil {
		return failed(sc.Name, fmt.Sprintf("execution failed: %v", err))
	}

	snapshot, err := harness.Snapshot(sc.Name, result)
	if err != nil {
		return failed(sc.Name, fmt.Sprintf("failed to snapshot state: %v", err))
	}

	goldenPath := goldenFilePath(scenarioFile)
	if r.opts.Update {
		if err := writeGoldenFile(goldenPath, snapshot); err != nil {
			return failed(sc.Name, fmt.Sprintf("failed to update golden file: %v", err))
		}
		r.opts.formatter(r.cmd).VerboseLog("updated %s", goldenPath)
		return ScenarioResult{Name: sc.Name, Pass: true}
	}

	errs := append([]string{}, result.Errors...)
	golden, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// No golden file - assertions only.
	case err != nil:
		errs = append(errs, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(golden, snapshot):
		errs = append(errs, "state does not match golden file (run with --update to regenerate)")
	}

	if len(errs) > 0 {
		return ScenarioResult{Name: sc.Name, Pass: false, Errors: errs}
	}
	return ScenarioResult{Name: sc.Name, Pass: true}
}

// report prints one scenario line in text mode.
func (r *scenarioRunner) report(res ScenarioResult) {
	if r.opts.Format == "json" {
		return
	}
	w := r.cmd.OutOrStdout()
	if res.Pass {
		fmt.Fprintf(w, "✓ %s\n", res.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", res.Name)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func failed(name, message string) ScenarioResult {
	return ScenarioResult{Name: name, Pass: false, Errors: []string{message}}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// writeGoldenFile stores a snapshot, creating the golden directory.
func writeGoldenFile(goldenPath string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, snapshot, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    ErrCodeFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
