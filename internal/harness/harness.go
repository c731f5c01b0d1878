package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/scenarios/internal/testutil"
	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/docstore/sqlitestore"
	"github.com/roach88/scenarios/pkg/scenario"
	"github.com/roach88/scenarios/pkg/template"
)

// Harness executes scenarios against one store.
type Harness struct {
	store     docstore.Store
	templates template.Set
	logger    *slog.Logger
	reset     bool
	state     bool
	ids       scenario.IDGenerator
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for seed and assertion diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithoutReset keeps existing documents instead of cleaning the registered
// collections before seeding.
func WithoutReset() Option {
	return func(h *Harness) {
		h.reset = false
	}
}

// WithoutState skips reading back the final collection contents. The
// result's State stays empty.
func WithoutState() Option {
	return func(h *Harness) {
		h.state = false
	}
}

// WithIDGenerator draws scenario identifiers from gen for scenarios that do
// not fix one with scenario_id. Without it those runs use
// "scenario-default".
func WithIDGenerator(gen scenario.IDGenerator) Option {
	return func(h *Harness) {
		h.ids = gen
	}
}

// New returns a Harness that seeds store using templates. A scenario's own
// templates directory takes precedence over templates.
func New(store docstore.Store, templates template.Set, opts ...Option) *Harness {
	h := &Harness{
		store:     store,
		templates: templates,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		reset:     true,
		state:     true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario in a fresh in-memory SQLite store with sequential
// document identifiers ("doc-1", "doc-2", ...).
//
// Execution flow:
//  1. Open an in-memory store
//  2. Load templates (scenario directory, else the given set)
//  3. Seed the batches through a scenario.Builder
//  4. Evaluate assertions
//  5. Capture the final state of every touched collection, unless
//     WithoutState is given
func Run(ctx context.Context, sc *Scenario, templates template.Set, opts ...Option) (*Result, error) {
	st, err := sqlitestore.Open(":memory:",
		sqlitestore.WithIDGenerator(testutil.NewSequentialIDs("doc").Next))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close(ctx)

	return New(st, templates, opts...).Run(ctx, sc)
}

// Run seeds sc into the harness store and evaluates its assertions.
// Seeding failures are returned as errors. Assertion failures are reported
// in the result.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	templates := h.templates
	if sc.Templates != "" {
		loaded, err := template.LoadDir(sc.Templates, template.WithLogger(h.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
		templates = loaded
	}

	ids := h.ids
	if sc.ScenarioID != "" || ids == nil {
		ids = testutil.NewFixedScenarioID(sc.ScenarioID)
	}

	builder, err := scenario.New(ctx, h.store, templates,
		scenario.WithIDGenerator(ids),
		scenario.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create builder: %w", err)
	}

	if h.reset {
		if err := builder.Cleanup(ctx); err != nil {
			return nil, fmt.Errorf("failed to clean collections: %w", err)
		}
	}

	var createOpts []scenario.CreateOption
	if sc.Marker {
		createOpts = append(createOpts, scenario.WithScenarioMarker())
	}

	def := sc.Definition()
	created, err := builder.Create(ctx, def, createOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to seed scenario %s: %w", sc.Name, err)
	}

	result := NewResult()
	result.ScenarioID = created.ScenarioID
	result.Inserted = created.IDs

	h.logger.Info("scenario seeded",
		"scenario", sc.Name,
		"scenario_id", created.ScenarioID,
		"collections", len(created.IDs))

	for _, msg := range EvaluateAssertions(ctx, h.store, sc.Assertions, created.ScenarioID) {
		result.AddError(msg)
	}

	if !h.state {
		return result, nil
	}

	for _, name := range stateCollections(builder.Collections(), def.Collections()) {
		docs, err := h.store.Find(ctx, name, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		result.State[name] = docs
	}

	return result, nil
}

func stateCollections(registered, seeded []string) []string {
	seen := make(map[string]bool, len(registered)+len(seeded))
	var names []string
	for _, group := range [][]string{registered, seeded} {
		for _, name := range group {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
