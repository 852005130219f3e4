package usage

import (
	"context"

	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	ucquota "github.com/kailas-cloud/gphotosync/internal/usecase/quota"
)

// LedgerReader provides the current day's ledger.
type LedgerReader interface {
	Load(ctx context.Context) quota.Ledger
}

// Limits exposes the configured quotas and their stop lines.
type Limits interface {
	Config() ucquota.GateConfig
	RequestStopLine() int64
	ByteStopLine() int64
}

// MeanReader provides the current per-upload request estimate.
type MeanReader interface {
	Mean(ctx context.Context) float64
}
