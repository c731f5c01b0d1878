package sqlitestore

import (
	"context"
	"fmt"

	"github.com/roach88/scenarios/pkg/document"
)

// Find returns the documents of collection matching filter in insertion
// order. Matching happens after decoding, with the same subset semantics as
// the other stores.
func (s *Store) Find(ctx context.Context, collection string, filter document.Document) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data
		FROM documents
		WHERE collection = ?
		ORDER BY seq ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []document.Document{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := unmarshalDocument(data)
		if err != nil {
			return nil, err
		}
		if document.Matches(doc, filter) {
			docs = append(docs, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// ListCollectionNames implements docstore.Store.
func (s *Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return names, nil
}

// Comments returns the insert comments recorded for a collection, one per
// document in insertion order.
func (s *Store) Comments(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT comment FROM documents WHERE collection = ? ORDER BY seq ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}
