package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/db"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	"github.com/kailas-cloud/gphotosync/internal/metrics"
)

// Ledger is the persistent quota ledger. Every mutator re-reads the stored record first,
// so a day rollover is noticed even by a process that runs across midnight.
type Ledger struct {
	mu          sync.Mutex
	repo        LedgerRepo
	clock       quota.Clock
	seed        int64
	seedApplied bool
	logger      *zap.Logger
}

// NewLedger creates a ledger service. seed is the manual initial request count (0 = none).
func NewLedger(repo LedgerRepo, clock quota.Clock, seed int64, logger *zap.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		clock:  clock,
		seed:   seed,
		logger: logger,
	}
}

// Clock returns the reference-day clock.
func (l *Ledger) Clock() quota.Clock { return l.clock }

// Load returns today's record. It never fails: an unreadable record is replaced by a fresh one.
func (l *Ledger) Load(ctx context.Context) quota.Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Save persists rec as the current record.
func (l *Ledger) Save(ctx context.Context, rec quota.Ledger) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(ctx, rec)
}

// IncrementRequests adds n to today's request counter.
func (l *Ledger) IncrementRequests(ctx context.Context, n int64) (quota.Ledger, error) {
	return l.mutate(ctx, func(rec *quota.Ledger) {
		rec.AddRequests(n)
		rec.Source = quota.SourceLocalEstimate
	})
}

// RollbackRequests subtracts n from today's request counter, clamped at zero.
func (l *Ledger) RollbackRequests(ctx context.Context, n int64) (quota.Ledger, error) {
	return l.mutate(ctx, func(rec *quota.Ledger) { rec.AddRequests(-n) })
}

// IncrementBytes adds n to today's uploaded byte counter.
func (l *Ledger) IncrementBytes(ctx context.Context, n int64) (quota.Ledger, error) {
	return l.mutate(ctx, func(rec *quota.Ledger) { rec.AddBytes(n) })
}

// OverwriteRequests replaces today's request counter, leaving bytes untouched.
func (l *Ledger) OverwriteRequests(ctx context.Context, n int64, src quota.Source) (quota.Ledger, error) {
	if n < 0 {
		n = 0
	}
	return l.mutate(ctx, func(rec *quota.Ledger) {
		rec.RequestsUsed = n
		rec.Source = src
	})
}

func (l *Ledger) mutate(ctx context.Context, fn func(*quota.Ledger)) (quota.Ledger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.load(ctx)
	fn(&rec)
	if err := l.save(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func (l *Ledger) load(ctx context.Context) quota.Ledger {
	today := l.clock.Today()

	rec, err := l.repo.Load(ctx)
	switch {
	case err != nil:
		if !errors.Is(err, db.ErrKeyNotFound) {
			l.logger.Warn("Quota ledger unreadable, starting from zero", zap.Error(err))
		}
		return l.fresh(ctx, today)
	case rec.Date != today:
		l.logger.Info("New quota day, counters reset",
			zap.String("previous_date", rec.Date),
			zap.String("date", today),
			zap.Int64("previous_requests", rec.RequestsUsed),
		)
		return l.fresh(ctx, today)
	}

	if !l.seedApplied {
		l.seedApplied = true
		if l.seed > rec.RequestsUsed {
			l.logger.Info("Manual sync of API request count",
				zap.Int64("from", rec.RequestsUsed),
				zap.Int64("to", l.seed),
			)
			rec.RequestsUsed = l.seed
			rec.Source = quota.SourceManualSeed
			if err := l.save(ctx, rec); err != nil {
				l.logger.Warn("Failed to persist seeded ledger", zap.Error(err))
			}
		}
	}
	return rec
}

func (l *Ledger) fresh(ctx context.Context, today string) quota.Ledger {
	var seed int64
	if !l.seedApplied {
		seed = l.seed
		l.seedApplied = true
	}
	rec := quota.Fresh(today, seed)
	if err := l.save(ctx, rec); err != nil {
		l.logger.Warn("Failed to persist fresh ledger", zap.Error(err))
	}
	return rec
}

func (l *Ledger) save(ctx context.Context, rec quota.Ledger) error {
	if err := l.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	metrics.QuotaRequestsUsed.Set(float64(rec.RequestsUsed))
	metrics.QuotaBytesUploaded.Set(float64(rec.BytesUploaded))
	l.logger.Debug("Quota ledger saved",
		zap.String("date", rec.Date),
		zap.Int64("requests_used", rec.RequestsUsed),
		zap.String("uploaded", humanize.IBytes(uint64(rec.BytesUploaded))),
		zap.String("source", string(rec.Source)),
	)
	return nil
}
