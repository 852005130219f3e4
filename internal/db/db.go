package db

import (
	"context"
)

// Store is the persistence facade shared by every storage driver.
// Ledger, history and upload records only need whole-value reads and writes.
type Store interface {
	Pinger
	KVStore
	Close() error
}

// Pinger checks storage availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides whole-value key operations. Set replaces the value atomically.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
