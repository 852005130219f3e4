package reconcile

import (
	"context"

	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
)

// Source reports today's authoritative request count.
type Source interface {
	RequestCount(ctx context.Context) (int64, error)
}

// LedgerWriter overwrites the request counter of the current ledger record.
type LedgerWriter interface {
	OverwriteRequests(ctx context.Context, n int64, src quota.Source) (quota.Ledger, error)
}
