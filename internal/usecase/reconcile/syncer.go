package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/domain"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	"github.com/kailas-cloud/gphotosync/internal/metrics"
)

// Syncer overwrites the local request counter with the authoritative value,
// every interval or every N operations, whichever comes first.
type Syncer struct {
	mu       sync.Mutex
	source   Source
	ledger   LedgerWriter
	interval time.Duration
	everyOps int
	now      func() time.Time
	lastSync time.Time
	ops      int
	logger   *zap.Logger
}

// NewSyncer creates a Syncer. A zero interval or everyOps disables that trigger.
func NewSyncer(source Source, ledger LedgerWriter, interval time.Duration, everyOps int, logger *zap.Logger) *Syncer {
	return &Syncer{
		source:   source,
		ledger:   ledger,
		interval: interval,
		everyOps: everyOps,
		now:      time.Now,
		logger:   logger,
	}
}

// WithNow replaces the wall clock.
func (s *Syncer) WithNow(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// AfterOperation counts one completed operation and syncs when a trigger fires.
func (s *Syncer) AfterOperation(ctx context.Context) {
	s.mu.Lock()
	s.ops++
	due := s.due()
	s.mu.Unlock()

	if due {
		_ = s.Sync(ctx)
	}
}

// Sync queries the source and, on success, overwrites the ledger. Failures are logged
// and returned but never fatal; both triggers restart either way.
func (s *Syncer) Sync(ctx context.Context) error {
	s.mu.Lock()
	s.lastSync = s.now()
	s.ops = 0
	s.mu.Unlock()

	n, err := s.source.RequestCount(ctx)
	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrReconcileUnavailable) {
			status = "unavailable"
		}
		metrics.ReconcileTotal.WithLabelValues(status).Inc()
		s.logger.Warn("Authoritative usage unavailable, keeping local estimate", zap.Error(err))
		return fmt.Errorf("reconcile: %w", err)
	}

	rec, err := s.ledger.OverwriteRequests(ctx, n, quota.SourceReconciled)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Failed to store reconciled usage", zap.Error(err))
		return fmt.Errorf("reconcile: %w", err)
	}

	metrics.ReconcileTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Request usage reconciled",
		zap.Int64("requests_used", rec.RequestsUsed),
		zap.String("date", rec.Date),
	)
	return nil
}

func (s *Syncer) due() bool {
	if s.everyOps > 0 && s.ops >= s.everyOps {
		return true
	}
	if s.interval > 0 && s.now().Sub(s.lastSync) >= s.interval {
		return true
	}
	return false
}
