package sqlitestore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func sequentialIDs() func() any {
	n := 0
	return func() any {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
