package testutil

// FixedScenarioID returns the same scenario identifier on every call.
//
// Scenario files set it with the `scenario_id` key so that marker values in
// golden snapshots are stable across runs.
//
// Thread-safety: FixedScenarioID is stateless and safe for concurrent use.
type FixedScenarioID struct {
	id string
}

// NewFixedScenarioID creates a fixed generator. If id is empty, Generate
// returns "scenario-default".
func NewFixedScenarioID(id string) *FixedScenarioID {
	if id == "" {
		id = "scenario-default"
	}
	return &FixedScenarioID{id: id}
}

// Generate implements scenario.IDGenerator.
func (g *FixedScenarioID) Generate() any {
	return g.id
}
