package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/document"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type       string              // Assertion type for categorization
	Collection string              // Collection that was queried
	Expected   string              // Human-readable expected outcome
	Actual     string              // Human-readable actual outcome
	Documents  []document.Document // Documents that matched where, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s on %s\n", e.Type, e.Collection)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Documents) > 0 {
		fmt.Fprintf(&buf, "\nMatching documents:\n")
		for i, doc := range e.Documents {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatFields(doc))
		}
	}

	return buf.String()
}

// assertDocumentCount checks that exactly Count documents match Where.
func assertDocumentCount(docs []document.Document, a Assertion, where document.Document) error {
	if len(docs) != a.Count {
		return &AssertionError{
			Type:       AssertDocumentCount,
			Collection: a.Collection,
			Expected:   fmt.Sprintf("%d documents where %s", a.Count, formatFields(where)),
			Actual:     fmt.Sprintf("%d documents", len(docs)),
			Documents:  docs,
		}
	}
	return nil
}

// assertDocumentExists checks that a document matching Where exists and,
// when Expect is set, that one of them contains every expected field.
func assertDocumentExists(docs []document.Document, a Assertion, where, expect document.Document) error {
	if len(docs) == 0 {
		return &AssertionError{
			Type:       AssertDocumentExists,
			Collection: a.Collection,
			Expected:   fmt.Sprintf("a document where %s", formatFields(where)),
			Actual:     "no document found",
		}
	}

	for _, doc := range docs {
		if document.Matches(doc, expect) {
			return nil
		}
	}

	return &AssertionError{
		Type:       AssertDocumentExists,
		Collection: a.Collection,
		Expected:   fmt.Sprintf("a document where %s with %s", formatFields(where), formatFields(expect)),
		Actual:     fmt.Sprintf("%d matching documents, none with the expected fields", len(docs)),
		Documents:  docs,
	}
}

// substitute replaces ScenarioPlaceholder strings in m with scenarioID and
// normalizes numeric widths.
func substitute(m map[string]any, scenarioID any) document.Document {
	if m == nil {
		return nil
	}
	out := make(document.Document, len(m))
	for k, v := range m {
		out[k] = substituteValue(document.Normalize(v), scenarioID)
	}
	return out
}

func substituteValue(v any, scenarioID any) any {
	switch val := v.(type) {
	case string:
		if val == ScenarioPlaceholder {
			return scenarioID
		}
		return val
	case map[string]any:
		return map[string]any(substitute(val, scenarioID))
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = substituteValue(elem, scenarioID)
		}
		return out
	default:
		return val
	}
}

// formatFields creates a stable human-readable rendering of a document.
func formatFields(d document.Document) string {
	if len(d) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, d[k]))
	}
	return strings.Join(parts, " AND ")
}

// EvaluateAssertions evaluates all assertions against the store.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, store docstore.Store, assertions []Assertion, scenarioID any) []string {
	var errs []string

	for i, a := range assertions {
		where := substitute(a.Where, scenarioID)
		expect := substitute(a.Expect, scenarioID)

		docs, err := store.Find(ctx, a.Collection, where)
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: query %s: %v", i, a.Collection, err))
			continue
		}

		switch a.Type {
		case AssertDocumentCount:
			err = assertDocumentCount(docs, a, where)
		case AssertDocumentExists:
			err = assertDocumentExists(docs, a, where, expect)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
