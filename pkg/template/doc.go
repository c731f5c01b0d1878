// Package template discovers default documents ("templates") for scenario
// building.
//
// A template source is a directory. Every regular file directly under it is
// a candidate sub-unit, named after its base name without extension:
//
//	templates/
//	  customers.cue    TEMPLATE: {status: "active"}
//	  orders.yaml      TEMPLATE: {state: pending, lines: []}
//	  products.json    {"TEMPLATE": {"currency": "EUR"}}
//
// Each file is parsed and evaluated on its own. CUE files are compiled with
// the CUE SDK, YAML and JSON files are decoded with yaml.v3. When the file
// exposes a top-level TEMPLATE field with a concrete value, that value is
// recorded under the file's name. Files that fail to parse or evaluate, and
// files without TEMPLATE, are skipped: one broken template never blocks the
// rest of the suite.
//
// Only a missing or non-directory source location is an error (*ImportError).
//
// The loader does not inspect the shape of a template. A TEMPLATE that is a
// list or a scalar is recorded as-is.
package template
