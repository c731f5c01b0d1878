package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/scenarios/pkg/document"
	"github.com/roach88/scenarios/pkg/template"
)

// Snapshot renders the final state of a run as canonical JSON:
//
//	{"collections":{"customers":[{...}]},"scenario_id":"...","scenario_name":"..."}
//
// Collections are keyed by name and documents keep insertion order, so two
// runs of the same scenario produce identical bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	collections := make(map[string]any, len(result.State))
	for coll, docs := range result.State {
		list := make([]any, len(docs))
		for i, doc := range docs {
			list[i] = map[string]any(doc)
		}
		collections[coll] = list
	}

	snapshot := map[string]any{
		"scenario_name": name,
		"collections":   collections,
	}
	if result.ScenarioID != nil {
		snapshot["scenario_id"] = result.ScenarioID
	}
	return document.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares the final state against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the state doesn't match the golden file.
func RunWithGolden(t *testing.T, sc *Scenario, templates template.Set) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), sc, templates)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, sc.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
