package executor

import (
	"context"

	"github.com/kailas-cloud/gphotosync/internal/domain/command"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
)

// Runner runs one opaque remote command. A non-nil error means the command could not be run at all.
type Runner interface {
	Run(ctx context.Context, args []string) (command.Result, error)
}

// LedgerService is the persistent quota ledger as seen by the executor.
type LedgerService interface {
	Load(ctx context.Context) quota.Ledger
	IncrementRequests(ctx context.Context, n int64) (quota.Ledger, error)
}

// Gate decides whether a quota-relevant operation may run.
type Gate interface {
	CheckRequests(used, projected int64) quota.Decision
}

// CostObserver learns from committed costs.
type CostObserver interface {
	Observe(ctx context.Context, cost int64)
	Mean(ctx context.Context) float64
}

// Reconciler is notified after every completed quota-relevant operation.
type Reconciler interface {
	AfterOperation(ctx context.Context)
}
