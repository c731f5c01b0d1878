package harness

import (
	"sort"

	"github.com/roach88/scenarios/pkg/document"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// ScenarioID is the identifier the builder used for this run.
	ScenarioID any `json:"scenario_id"`

	// Inserted maps each seeded collection to the identifiers the store
	// returned, in seed order.
	Inserted map[string][]any `json:"inserted"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the final documents of every registered or seeded
	// collection.
	State map[string][]document.Document `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Inserted: make(map[string][]any),
		Errors:   []string{},
		State:    make(map[string][]document.Document),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Collections returns the collections in State, sorted.
func (r *Result) Collections() []string {
	names := make([]string, 0, len(r.State))
	for name := range r.State {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
