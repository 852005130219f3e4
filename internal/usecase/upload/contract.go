package upload

import (
	"context"

	"github.com/kailas-cloud/gphotosync/internal/domain/command"
	"github.com/kailas-cloud/gphotosync/internal/domain/media"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	"github.com/kailas-cloud/gphotosync/internal/domain/record"
	"github.com/kailas-cloud/gphotosync/internal/domain/summary"
	"github.com/kailas-cloud/gphotosync/internal/usecase/executor"
)

// Executor runs remote calls under quota control.
type Executor interface {
	Execute(ctx context.Context, call executor.Call) (command.Result, error)
}

// Commands builds transfer tool invocations and decodes their output.
type Commands interface {
	ListArgs() []string
	CopyArgs(rel, album string) []string
	ParseListing(data []byte) ([]media.File, error)
	Kind(path string) media.Kind
}

// Ledger is the persistent quota ledger.
type Ledger interface {
	Load(ctx context.Context) quota.Ledger
	IncrementBytes(ctx context.Context, n int64) (quota.Ledger, error)
}

// ByteGate decides whether a file of a given size may be uploaded.
type ByteGate interface {
	CheckBytes(used, size int64) quota.Decision
}

// Estimator predicts the request cost of the next upload.
type Estimator interface {
	EstimateCost(ctx context.Context, first bool) int64
}

// RecordRepo persists the Done set and the Failed map.
type RecordRepo interface {
	Load(ctx context.Context) (*record.Set, error)
	SaveDone(ctx context.Context, s *record.Set) error
	SaveFailed(ctx context.Context, s *record.Set) error
}

// SummaryRepo persists the run summary and returns its storage key.
type SummaryRepo interface {
	Save(ctx context.Context, s *summary.Summary) (string, error)
}
