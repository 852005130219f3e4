package quota

import (
	"context"

	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
)

// LedgerRepo persists the current ledger record.
type LedgerRepo interface {
	Load(ctx context.Context) (quota.Ledger, error)
	Save(ctx context.Context, l quota.Ledger) error
}

// HistoryRepo persists the rolling cost samples of one day.
type HistoryRepo interface {
	Load(ctx context.Context) (string, []int64, error)
	Save(ctx context.Context, date string, samples []int64) error
}

// Estimator produces the projected request cost of one upload.
type Estimator interface {
	// EstimateCost returns the projected cost; first marks the first upload into an unseen grouping.
	EstimateCost(ctx context.Context, first bool) int64
	// Observe records the cost charged for a completed operation.
	Observe(ctx context.Context, cost int64)
	// Mean returns the current per-operation mean without surcharge.
	Mean(ctx context.Context) float64
	// Samples returns how many observations back the mean (0 for a fixed heuristic).
	Samples(ctx context.Context) int
}
