// Package harness runs scenario files: YAML documents that seed collections
// through a scenario.Builder and then assert on what ended up in the store.
//
// # Scenario Format
//
//	name: active_customer_with_order
//	description: "An active customer with one open order"
//	templates: ../templates     # optional, relative to this file
//	marker: true                # tag documents with the scenario id
//	scenario_id: scn-001        # optional fixed scenario id
//	seed:
//	  - collection: customers
//	    documents:
//	      - { name: "Ada", status: active }
//	  - collection: orders
//	    documents:
//	      - { total: 42 }
//	assertions:
//	  - type: document_count
//	    collection: customers
//	    where: { status: active }
//	    count: 1
//	  - type: document_exists
//	    collection: orders
//	    where: { scenario_id: $scenario }
//	    expect: { currency: EUR }
//
// Seed batches are inserted in file order. The string "$scenario" inside
// where and expect stands for the scenario identifier of the run.
//
// # Assertion Types
//
//   - document_count: exactly count documents in collection match where
//   - document_exists: at least one document matches where, and one of the
//     matching documents contains every field of expect
//
// # Deterministic Runs
//
// Run executes each scenario against a fresh in-memory SQLite store with
// sequential document identifiers and a fixed scenario identifier, so the
// final state can be compared byte for byte with a golden snapshot.
package harness
