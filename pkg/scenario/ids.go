package scenario

import (
	"github.com/google/uuid"
)

// IDGenerator produces scenario identifiers. One identifier is drawn per
// Create call.
type IDGenerator interface {
	Generate() any
}

// IDGeneratorFunc adapts a plain function to IDGenerator.
//
//	scenario.WithIDGenerator(scenario.IDGeneratorFunc(mongostore.NewObjectID))
type IDGeneratorFunc func() any

// Generate calls f.
func (f IDGeneratorFunc) Generate() any {
	return f()
}

// UUIDGenerator generates time-sortable UUIDv7 identifiers as hyphenated
// strings. It is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate panics if the system random source fails.
func (UUIDGenerator) Generate() any {
	return uuid.Must(uuid.NewV7()).String()
}
