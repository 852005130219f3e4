package usage

import (
	"context"
	"time"

	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	domusage "github.com/kailas-cloud/gphotosync/internal/domain/usage"
	"github.com/kailas-cloud/gphotosync/internal/domain/usage/budget"
)

// Service handles usage reporting.
type Service struct {
	ledger    LedgerReader
	limits    Limits
	estimator MeanReader
	clock     quota.Clock
}

// New creates a Service. estimator can be nil.
func New(ledger LedgerReader, limits Limits, estimator MeanReader, clock quota.Clock) *Service {
	return &Service{ledger: ledger, limits: limits, estimator: estimator, clock: clock}
}

// GetReport builds the usage report for the current reference day.
func (s *Service) GetReport(ctx context.Context) domusage.Report {
	now := s.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.clock.Location())
	reset := s.clock.NextReset()

	rec := s.ledger.Load(ctx)
	cfg := s.limits.Config()
	requests := budget.New(cfg.RequestLimit, rec.RequestsUsed, s.limits.RequestStopLine(), reset.UnixMilli())
	bytes := budget.New(cfg.ByteLimit, rec.BytesUploaded, s.limits.ByteStopLine(), reset.UnixMilli())

	var mean float64
	if s.estimator != nil {
		mean = s.estimator.Mean(ctx)
	}
	return domusage.NewReport(rec.Date, dayStart.UnixMilli(), reset.UnixMilli(), requests, bytes, mean)
}
