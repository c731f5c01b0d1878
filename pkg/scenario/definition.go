package scenario

import (
	"sort"

	"github.com/roach88/scenarios/pkg/document"
)

// Batch is the list of overrides declared for one collection.
type Batch struct {
	Collection string
	Documents  []document.Document
}

// Definition declares the documents of one scenario. Batches are inserted in
// slice order.
type Definition []Batch

// Define starts a definition with a single batch.
//
//	def := scenario.Define("customers", document.Document{"name": "A"}).
//		And("orders", document.Document{"total": 10})
func Define(collection string, docs ...document.Document) Definition {
	return Definition{{Collection: collection, Documents: docs}}
}

// And returns d with one more batch appended.
func (d Definition) And(collection string, docs ...document.Document) Definition {
	return append(d, Batch{Collection: collection, Documents: docs})
}

// FromMap converts a map definition into batches ordered by collection name.
func FromMap(m map[string][]document.Document) Definition {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	def := make(Definition, 0, len(names))
	for _, name := range names {
		def = append(def, Batch{Collection: name, Documents: m[name]})
	}
	return def
}

// Collections returns the collection of every batch in order, with repeats
// removed.
func (d Definition) Collections() []string {
	seen := make(map[string]bool, len(d))
	out := make([]string, 0, len(d))
	for _, b := range d {
		if !seen[b.Collection] {
			seen[b.Collection] = true
			out = append(out, b.Collection)
		}
	}
	return out
}
