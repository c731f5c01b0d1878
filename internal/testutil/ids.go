package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs hands out "<prefix>-1", "<prefix>-2", ... for tests that
// need stable identifiers in assertions and golden files.
//
// Next has the func() any shape the document stores accept for generated
// _id values, and Generate satisfies scenario.IDGenerator.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDs creates a generator starting at 0. The first call to
// Next returns "<prefix>-1". An empty prefix defaults to "id".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDs{prefix: prefix}
}

// Next increments the sequence and returns the new identifier.
func (g *SequentialIDs) Next() any {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Generate is Next under the scenario.IDGenerator name.
func (g *SequentialIDs) Generate() any {
	return g.Next()
}

// Current returns how many identifiers have been issued.
func (g *SequentialIDs) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset starts the sequence over. After Reset, Next returns "<prefix>-1".
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
