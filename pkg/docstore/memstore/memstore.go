// Package memstore is an in-memory docstore.Store. Data is lost when the
// process exits. Documents are copied on the way in and on the way out, so
// callers never share maps with the store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/document"
)

// DuplicateKeyError reports an insert whose _id already exists in the
// collection. The whole batch is rejected.
type DuplicateKeyError struct {
	Collection string
	ID         any
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key in %q: _id %v", e.Collection, e.ID)
}

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	newID       func() any
}

type collection struct {
	docs []document.Document
	ids  map[string]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default UUIDv7 string identifiers.
func WithIDGenerator(gen func() any) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]*collection),
		newID: func() any {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) collection(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{ids: make(map[string]struct{})}
		s.collections[name] = c
	}
	return c
}

// idKey makes identifiers of any comparable-looking type usable as map keys.
func idKey(id any) string {
	return fmt.Sprintf("%T:%v", id, id)
}

// InsertMany implements docstore.Store. The batch is all-or-nothing.
func (s *Store) InsertMany(ctx context.Context, name string, docs []document.Document, _ docstore.InsertOptions) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateCollectionName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(name)
	staged := make([]document.Document, 0, len(docs))
	ids := make([]any, 0, len(docs))
	batchKeys := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		stored := doc.Clone()
		if stored == nil {
			stored = document.Document{}
		}
		id, ok := stored[docstore.IDField]
		if !ok {
			id = s.newID()
			stored[docstore.IDField] = id
		}
		key := idKey(id)
		if _, dup := c.ids[key]; dup {
			return nil, &DuplicateKeyError{Collection: name, ID: id}
		}
		if _, dup := batchKeys[key]; dup {
			return nil, &DuplicateKeyError{Collection: name, ID: id}
		}
		batchKeys[key] = struct{}{}
		staged = append(staged, stored)
		ids = append(ids, id)
	}

	c.docs = append(c.docs, staged...)
	for key := range batchKeys {
		c.ids[key] = struct{}{}
	}
	return ids, nil
}

// DeleteMany implements docstore.Store.
func (s *Store) DeleteMany(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, nil
	}
	n := int64(len(c.docs))
	c.docs = nil
	c.ids = make(map[string]struct{})
	return n, nil
}

// CreateCollection implements docstore.Store.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := docstore.ValidateCollectionName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(name)
	return nil
}

// ListCollectionNames implements docstore.Store.
func (s *Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Find implements docstore.Store.
func (s *Store) Find(ctx context.Context, name string, filter document.Document) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []document.Document{}
	c, ok := s.collections[name]
	if !ok {
		return out, nil
	}
	for _, doc := range c.docs {
		if document.Matches(doc, filter) {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// Close implements docstore.Store. The data stays readable.
func (s *Store) Close(context.Context) error {
	return nil
}
