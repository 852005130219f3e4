package ledger

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
)

// Key is the storage key of the current ledger record.
const Key = "daily_quota"

// store is the consumer interface for ledger persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists the single current quota ledger record, rewritten wholesale on every save.
type Repo struct {
	store store
}

// New creates a ledger repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Load reads the current record. A missing record surfaces db.ErrKeyNotFound (wrapped).
func (r *Repo) Load(ctx context.Context) (quota.Ledger, error) {
	data, err := r.store.Get(ctx, Key)
	if err != nil {
		return quota.Ledger{}, fmt.Errorf("get ledger: %w", err)
	}
	return ledgerFromJSON(data)
}

// Save replaces the current record.
func (r *Repo) Save(ctx context.Context, l quota.Ledger) error {
	data, err := ledgerToJSON(l)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("set ledger: %w", err)
	}
	return nil
}
