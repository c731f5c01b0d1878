package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/document"
	"github.com/roach88/scenarios/pkg/scenario"
)

// ScenarioPlaceholder in where and expect values is replaced by the run's
// scenario identifier.
const ScenarioPlaceholder = "$scenario"

// Scenario is one scenario file.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario sets up.
	Description string `yaml:"description"`

	// Templates is a template directory. Relative paths are resolved
	// against the scenario file's directory. Empty means the caller
	// supplies the templates.
	Templates string `yaml:"templates,omitempty"`

	// Marker tags every seeded document with the scenario identifier.
	Marker bool `yaml:"marker,omitempty"`

	// ScenarioID fixes the scenario identifier. If empty, runs use
	// "scenario-default".
	ScenarioID string `yaml:"scenario_id,omitempty"`

	// Seed lists the batches to insert, in order.
	Seed []SeedBatch `yaml:"seed"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedBatch is the set of overrides for one collection.
type SeedBatch struct {
	Collection string           `yaml:"collection"`
	Documents  []map[string]any `yaml:"documents"`
}

// Assertion validates stored documents.
type Assertion struct {
	// Type is document_count or document_exists.
	Type string `yaml:"type"`

	// Collection is the collection to query.
	Collection string `yaml:"collection"`

	// Where selects documents by field equality. Empty selects all.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect lists fields a selected document must contain
	// (document_exists only). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the exact number of selected documents (document_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertDocumentCount  = "document_count"
	AssertDocumentExists = "document_exists"
)

// Definition converts the seed batches into a scenario definition.
func (s *Scenario) Definition() scenario.Definition {
	def := make(scenario.Definition, 0, len(s.Seed))
	for _, batch := range s.Seed {
		docs := make([]document.Document, len(batch.Documents))
		for i, d := range batch.Documents {
			docs[i] = document.NormalizeDocument(d)
			if docs[i] == nil {
				docs[i] = document.Document{}
			}
		}
		def = append(def, scenario.Batch{Collection: batch.Collection, Documents: docs})
	}
	return def
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sc.Templates != "" && !filepath.IsAbs(sc.Templates) {
		sc.Templates = filepath.Join(filepath.Dir(path), sc.Templates)
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &sc, nil
}

// FindScenarioFiles returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is matched against the file name without extension. The
// golden directory is skipped.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Seed) == 0 {
		return fmt.Errorf("seed list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Templates != "" {
		if info, err := os.Stat(s.Templates); err != nil || !info.IsDir() {
			return fmt.Errorf("templates directory not found: %s", s.Templates)
		}
	}

	for i, batch := range s.Seed {
		if err := docstore.ValidateCollectionName(batch.Collection); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Collection == "" {
		return fmt.Errorf("assertions[%d]: collection is required", index)
	}

	switch a.Type {
	case AssertDocumentCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for document_count", index)
		}
		if len(a.Expect) > 0 {
			return fmt.Errorf("assertions[%d]: expect is not supported for document_count", index)
		}
	case AssertDocumentExists:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
