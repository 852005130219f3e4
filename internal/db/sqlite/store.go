// Package sqlite implements db.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kailas-cloud/gphotosync/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store manages the SQLite connection and the kv table.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at path, enables WAL and creates the schema.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	sdb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("open sqlite db: %w", err)}
	}

	// Single writer; one connection keeps WAL checkpoints simple.
	sdb.SetMaxOpenConns(1)

	if err := sdb.Ping(); err != nil {
		_ = sdb.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("ping sqlite db: %w", err)}
	}

	if _, err := sdb.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = sdb.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("enable WAL mode: %w", err)}
	}

	s := &Store{db: sdb}
	if err := s.migrate(); err != nil {
		_ = sdb.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("schema migration: %w", err)}
	}
	return s, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Get returns the value stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return value, nil
}

// Set upserts value at key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", db.ErrInvalidKey)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &db.Error{Op: db.OpClose, Err: err}
	}
	return nil
}
