// Package sqlitestore is a docstore.Store backed by SQLite. Each document is
// a JSON row tagged with its collection, which makes it a lightweight stand-in
// for a document database in local runs and CI.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Documents must belong to a known collection
//
// # Duplicate identifiers
//
// Inserts use ON CONFLICT(collection, id) DO NOTHING. A document whose _id
// already exists is not written and its identifier is not returned, so the
// caller sees fewer confirmed identifiers than documents submitted.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/scenarios/pkg/docstore"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - collections + documents tables
const currentSchemaVersion = 1

// Store provides document storage in a single SQLite database.
type Store struct {
	db    *sql.DB
	newID func() any
}

var _ docstore.Store = (*Store)(nil)

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

// Open creates or opens a SQLite database at the given path. Use ":memory:"
// for a throwaway database.
//
// This function is idempotent - safe to call multiple times on one file.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db: db,
		newID: func() any {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close implements docstore.Store.
func (s *Store) Close(context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps user_version.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
