package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/document"
)

// InsertMany writes the batch in one transaction and returns the identifiers
// of the rows actually inserted. Documents whose _id already exists in the
// collection are skipped (ON CONFLICT DO NOTHING), so the returned slice can
// be shorter than docs.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []document.Document, opts docstore.InsertOptions) ([]any, error) {
	if err := docstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("insert many: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := ensureCollection(ctx, tx, collection); err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, id, data, comment)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO NOTHING
	`)
	if err != nil {
		return nil, fmt.Errorf("insert many: prepare: %w", err)
	}
	defer stmt.Close()

	ids := make([]any, 0, len(docs))
	for i, doc := range docs {
		stored := doc.Clone()
		if stored == nil {
			stored = document.Document{}
		}
		id, ok := stored[docstore.IDField]
		if !ok {
			id = s.newID()
			stored[docstore.IDField] = id
		}

		idKey, err := marshalID(id)
		if err != nil {
			return nil, fmt.Errorf("insert many: document %d: %w", i, err)
		}
		data, err := marshalDocument(stored)
		if err != nil {
			return nil, fmt.Errorf("insert many: document %d: %w", i, err)
		}

		res, err := stmt.ExecContext(ctx, collection, idKey, data, opts.Comment)
		if err != nil {
			return nil, fmt.Errorf("insert many: document %d: %w", i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("insert many: rows affected: %w", err)
		}
		if n == 1 {
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("insert many: commit: %w", err)
	}
	return ids, nil
}

// DeleteMany implements docstore.Store.
func (s *Store) DeleteMany(ctx context.Context, collection string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return 0, fmt.Errorf("delete many: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete many: rows affected: %w", err)
	}
	return n, nil
}

// CreateCollection implements docstore.Store.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if err := docstore.ValidateCollectionName(name); err != nil {
		return err
	}
	return ensureCollection(ctx, s.db, name)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureCollection(ctx context.Context, db execer, name string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO collections (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, name)
	if err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	return nil
}
