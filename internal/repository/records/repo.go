package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/db"
	"github.com/kailas-cloud/gphotosync/internal/domain/record"
)

// Storage keys.
const (
	DoneKey   = "state"
	FailedKey = "failed"
)

// store is the consumer interface for record persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists the Done set and the Failed mapping as two whole-value records.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates a records repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// Load reads both records. Missing records are empty. A legacy failed list is migrated and rewritten.
func (r *Repo) Load(ctx context.Context) (*record.Set, error) {
	var done []string
	data, err := r.store.Get(ctx, DoneKey)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
	case err != nil:
		return nil, fmt.Errorf("get done set: %w", err)
	default:
		if err := json.Unmarshal(data, &done); err != nil {
			return nil, fmt.Errorf("unmarshal done set: %w", err)
		}
	}

	failed := map[string]record.Failure{}
	data, err = r.store.Get(ctx, FailedKey)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
	case err != nil:
		return nil, fmt.Errorf("get failed set: %w", err)
	default:
		var legacy bool
		failed, legacy, err = failuresFromJSON(data)
		if err != nil {
			return nil, err
		}
		if legacy {
			r.logger.Info("migrating legacy failed list", zap.Int("entries", len(failed)))
			if err := r.saveFailed(ctx, failed); err != nil {
				r.logger.Warn("failed to rewrite migrated failed list", zap.Error(err))
			}
		}
	}

	return record.NewSet(done, failed), nil
}

// SaveDone rewrites the Done set.
func (r *Repo) SaveDone(ctx context.Context, s *record.Set) error {
	data, err := json.Marshal(s.Done())
	if err != nil {
		return fmt.Errorf("marshal done set: %w", err)
	}
	if err := r.store.Set(ctx, DoneKey, data); err != nil {
		return fmt.Errorf("set done set: %w", err)
	}
	return nil
}

// SaveFailed rewrites the Failed mapping.
func (r *Repo) SaveFailed(ctx context.Context, s *record.Set) error {
	return r.saveFailed(ctx, s.Failed())
}

func (r *Repo) saveFailed(ctx context.Context, m map[string]record.Failure) error {
	data, err := failuresToJSON(m)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, FailedKey, data); err != nil {
		return fmt.Errorf("set failed set: %w", err)
	}
	return nil
}
