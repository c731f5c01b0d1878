package template

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scenarios/pkg/document"
)

// decodeYAML handles .yaml, .yml and .json sources. The top level must be a
// mapping; its TEMPLATE entry is the template.
func decodeYAML(filename string, data []byte) (any, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	value, ok := root[FieldName]
	if !ok {
		return nil, errNoTemplate
	}
	return document.Normalize(value), nil
}
