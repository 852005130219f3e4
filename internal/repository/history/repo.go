package history

import (
	"context"
	"encoding/json"
	"fmt"
)

// Key is the storage key of the rolling cost history.
const Key = "requests_history"

// store is the consumer interface for history persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type historyRow struct {
	Date    string  `json:"date"`
	History []int64 `json:"history"`
}

// Repo persists the per-upload request samples of one calendar day.
type Repo struct {
	store store
}

// New creates a history repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Load returns the stored day and its samples. A missing record surfaces db.ErrKeyNotFound (wrapped).
func (r *Repo) Load(ctx context.Context) (string, []int64, error) {
	data, err := r.store.Get(ctx, Key)
	if err != nil {
		return "", nil, fmt.Errorf("get history: %w", err)
	}
	var row historyRow
	if err := json.Unmarshal(data, &row); err != nil {
		return "", nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return row.Date, row.History, nil
}

// Save replaces the stored samples for date.
func (r *Repo) Save(ctx context.Context, date string, samples []int64) error {
	if samples == nil {
		samples = []int64{}
	}
	data, err := json.MarshalIndent(historyRow{Date: date, History: samples}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := r.store.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("set history: %w", err)
	}
	return nil
}
