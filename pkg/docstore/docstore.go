// Package docstore defines the document store used to persist scenario data.
//
// A Store works on named collections of documents, the way a document
// database does. Backends live in sub-packages:
//
//   - memstore: in-process, for unit tests
//   - sqlitestore: documents as JSON rows in a SQLite file
//   - mongostore: MongoDB through the official driver
//
// Store errors are returned as produced by the backend. Callers should not
// expect them to be wrapped or translated.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/scenarios/pkg/document"
)

// IDField is the field that carries a document's store identifier.
const IDField = "_id"

// Store is the document store abstraction.
type Store interface {
	// InsertMany inserts docs into collection as one batch and returns the
	// identifiers of the documents the store confirms, in submission order.
	// A document without IDField gets a store-assigned identifier. The
	// collection is created on first insert.
	InsertMany(ctx context.Context, collection string, docs []document.Document, opts InsertOptions) ([]any, error)

	// DeleteMany removes every document from collection and reports how many
	// were removed. The collection itself is kept. Deleting from a missing
	// collection removes nothing and is not an error.
	DeleteMany(ctx context.Context, collection string) (int64, error)

	// CreateCollection creates name if it does not exist yet.
	CreateCollection(ctx context.Context, name string) error

	// ListCollectionNames returns every collection in the database, sorted.
	ListCollectionNames(ctx context.Context) ([]string, error)

	// Find returns the documents of collection whose fields equal those of
	// filter, in insertion order. A nil or empty filter returns everything.
	Find(ctx context.Context, collection string, filter document.Document) ([]document.Document, error)

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

// InsertOptions tunes one InsertMany call.
type InsertOptions struct {
	// Comment is attached to the insert where the backend supports it
	// (MongoDB command comments, a column in SQLite).
	Comment string
}

// ErrInvalidCollectionName is matched by ValidateCollectionName failures.
var ErrInvalidCollectionName = errors.New("invalid collection name")

// ValidateCollectionName applies MongoDB's naming rules so every backend
// accepts the same names: not empty, no '$' or NUL, not in the system
// namespace.
func ValidateCollectionName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidCollectionName)
	case strings.ContainsAny(name, "$\x00"):
		return fmt.Errorf("%w: %q contains '$' or NUL", ErrInvalidCollectionName, name)
	case strings.HasPrefix(name, "system."):
		return fmt.Errorf("%w: %q is in the system namespace", ErrInvalidCollectionName, name)
	}
	return nil
}

// Purge deletes the documents of every collection the store lists, not only
// the ones a scenario builder knows about.
func Purge(ctx context.Context, s Store) error {
	names, err := s.ListCollectionNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := s.DeleteMany(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
