// Package bolt implements db.Store on an embedded bbolt database, for hosts
// where the state directory should hold a single file instead of one per key.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kailas-cloud/gphotosync/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const defaultBucket = "gphotosync"

// Config holds bbolt settings.
type Config struct {
	Path        string
	Bucket      string
	OpenTimeout time.Duration
}

// Store implements db.Store via bbolt.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// NewStore opens (or creates) the database file and its bucket.
// OpenTimeout bounds the wait for the file lock held by another process.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = defaultBucket
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Second
	}

	bdb, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: cfg.OpenTimeout})
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	bucket := []byte(cfg.Bucket)
	err = bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = bdb.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)}
	}

	return &Store{db: bdb, bucket: bucket}, nil
}

// Ping runs an empty read transaction.
func (s *Store) Ping(_ context.Context) error {
	if err := s.db.View(func(*bolt.Tx) error { return nil }); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Get returns a copy of the value stored at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return db.ErrKeyNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, err
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// Set stores value at key in its own write transaction.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", db.ErrInvalidKey)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &db.Error{Op: db.OpClose, Err: err}
	}
	return nil
}
