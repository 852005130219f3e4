package quota

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/db"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	"github.com/kailas-cloud/gphotosync/internal/metrics"
)

// Compile-time checks.
var (
	_ Estimator = (*StaticEstimator)(nil)
	_ Estimator = (*RollingEstimator)(nil)
)

// StaticEstimator returns a fixed mean plus the first-in-grouping surcharge.
type StaticEstimator struct {
	mean      float64
	surcharge int64
}

// NewStaticEstimator creates a fixed-heuristic estimator.
func NewStaticEstimator(mean float64, surcharge int64) *StaticEstimator {
	metrics.EstimateRequestsPerUpload.Set(mean)
	return &StaticEstimator{mean: mean, surcharge: surcharge}
}

// EstimateCost implements Estimator.
func (e *StaticEstimator) EstimateCost(_ context.Context, first bool) int64 {
	return estimate(e.mean, e.surcharge, first)
}

// Observe is a no-op: the heuristic does not learn.
func (e *StaticEstimator) Observe(context.Context, int64) {}

// Mean implements Estimator.
func (e *StaticEstimator) Mean(context.Context) float64 { return e.mean }

// Samples implements Estimator.
func (e *StaticEstimator) Samples(context.Context) int { return 0 }

// RollingEstimator averages the last N observed costs of the current reference day.
// An empty window falls back to the default mean. The window resets when the day rolls over.
type RollingEstimator struct {
	mu          sync.Mutex
	repo        HistoryRepo
	clock       quota.Clock
	window      *quota.Window
	date        string
	defaultMean float64
	surcharge   int64
	logger      *zap.Logger
}

// NewRollingEstimator creates a rolling-average estimator and loads today's persisted samples.
func NewRollingEstimator(
	ctx context.Context, repo HistoryRepo, clock quota.Clock,
	capacity int, defaultMean float64, surcharge int64, logger *zap.Logger,
) *RollingEstimator {
	e := &RollingEstimator{
		repo:        repo,
		clock:       clock,
		window:      quota.NewWindow(capacity, nil),
		date:        clock.Today(),
		defaultMean: defaultMean,
		surcharge:   surcharge,
		logger:      logger,
	}

	date, samples, err := repo.Load(ctx)
	switch {
	case err != nil:
		if !errors.Is(err, db.ErrKeyNotFound) {
			logger.Warn("Request history unreadable, starting empty", zap.Error(err))
		}
	case date == e.date:
		e.window = quota.NewWindow(capacity, samples)
	}

	metrics.EstimateRequestsPerUpload.Set(e.mean())
	return e
}

// EstimateCost implements Estimator.
func (e *RollingEstimator) EstimateCost(ctx context.Context, first bool) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollIfNeeded(ctx)
	return estimate(e.mean(), e.surcharge, first)
}

// Observe appends cost to the window, evicting the oldest sample when full, and persists it.
func (e *RollingEstimator) Observe(ctx context.Context, cost int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollIfNeeded(ctx)
	e.window.Add(cost)
	e.persist(ctx)
	metrics.EstimateRequestsPerUpload.Set(e.mean())
}

// Mean implements Estimator.
func (e *RollingEstimator) Mean(ctx context.Context) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollIfNeeded(ctx)
	return e.mean()
}

// Samples implements Estimator.
func (e *RollingEstimator) Samples(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollIfNeeded(ctx)
	return e.window.Len()
}

func (e *RollingEstimator) mean() float64 {
	if m, ok := e.window.Mean(); ok {
		return m
	}
	return e.defaultMean
}

func (e *RollingEstimator) rollIfNeeded(ctx context.Context) {
	today := e.clock.Today()
	if today == e.date {
		return
	}
	e.logger.Info("New quota day, request history reset", zap.String("date", today))
	e.date = today
	e.window.Reset()
	e.persist(ctx)
}

func (e *RollingEstimator) persist(ctx context.Context) {
	if err := e.repo.Save(ctx, e.date, e.window.Samples()); err != nil {
		e.logger.Warn("Failed to persist request history", zap.Error(err))
	}
}

// estimate truncates toward zero.
func estimate(mean float64, surcharge int64, first bool) int64 {
	if first {
		return int64(mean + float64(surcharge))
	}
	return int64(mean)
}
