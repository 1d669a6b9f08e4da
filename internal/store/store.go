// Package store persists finished hand recordings in SQLite.
//
// A recording row keeps the summary fields used for listing and filtering;
// the frames are stored as one JSON document next to it. recording_hands
// indexes which hands appear so list queries never decode frames.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// pragmas run on the single connection right after it is opened.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Store owns the recordings database.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at dbPath and brings its schema up to
// date. Reopening an existing file keeps its recordings.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open recordings database: %w", err)
	}

	// PRAGMAs are per connection, so there must only ever be one.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate recordings database: %w", err)
	}
	return s, nil
}

// Close releases the database. Queries fail afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path is the file the store was opened with.
func (s *Store) Path() string { return s.path }

// DB exposes the connection for schema checks in tests and tooling.
func (s *Store) DB() *sql.DB { return s.db }
