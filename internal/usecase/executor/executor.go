package executor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/domain"
	"github.com/kailas-cloud/gphotosync/internal/domain/command"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	"github.com/kailas-cloud/gphotosync/internal/metrics"
)

// RetryPolicy bounds the attempts of one call.
type RetryPolicy struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// Call describes one remote operation.
type Call struct {
	Name          string
	Args          []string
	QuotaRelevant bool
	EstimatedCost int64
	Policy        RetryPolicy
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs remote calls with quota checks, bounded retries and failure classification.
type Executor struct {
	runner    Runner
	ledger    LedgerService
	gate      Gate
	estimator CostObserver
	clock     quota.Clock
	reconcile Reconciler
	sleep     SleepFunc
	logger    *zap.Logger
}

// New creates an Executor.
func New(
	runner Runner, ledger LedgerService, gate Gate,
	estimator CostObserver, clock quota.Clock, logger *zap.Logger,
) *Executor {
	return &Executor{
		runner:    runner,
		ledger:    ledger,
		gate:      gate,
		estimator: estimator,
		clock:     clock,
		sleep:     sleepCtx,
		logger:    logger,
	}
}

// WithReconciler attaches a reconciliation hook run after each committed operation.
func (e *Executor) WithReconciler(r Reconciler) *Executor {
	e.reconcile = r
	return e
}

// WithSleep replaces the backoff sleeper.
func (e *Executor) WithSleep(fn SleepFunc) *Executor {
	e.sleep = fn
	return e
}

// Execute runs call. Only a *domain.QuotaExceededError is meant to halt the caller's run;
// *domain.PermanentMediaError and *domain.RetriesExhaustedError concern this call alone.
func (e *Executor) Execute(ctx context.Context, call Call) (command.Result, error) {
	attempts := call.Policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	log := e.logger.With(zap.String("call", call.Name))

	if call.QuotaRelevant {
		if err := e.checkQuota(ctx, call.EstimatedCost); err != nil {
			metrics.RemoteCallsTotal.WithLabelValues("quota").Inc()
			return command.Result{}, err
		}
	}

	var last command.Result
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		res, runErr := e.runner.Run(ctx, call.Args)
		metrics.RemoteCallDuration.
			WithLabelValues(strconv.FormatBool(call.QuotaRelevant)).
			Observe(time.Since(start).Seconds())
		last = res

		if runErr == nil && res.OK() {
			if call.QuotaRelevant {
				e.commit(ctx, call.EstimatedCost, true)
			}
			metrics.RemoteCallsTotal.WithLabelValues("success").Inc()
			return res, nil
		}

		diag := res.Diagnostic()
		if runErr != nil {
			diag = fmt.Sprintf("%v %s", runErr, diag)
		}

		class := Classify(diag)
		switch class {
		case ClassDailyQuota:
			if call.QuotaRelevant {
				e.commit(ctx, call.EstimatedCost, false)
			}
			err := domain.NewQuotaExceeded(domain.QuotaRemote, e.clock.NextReset(), e.clock.Now())
			log.Warn("Daily quota limit reported by remote service",
				zap.Time("reset_at", e.clock.NextReset()),
				zap.Error(err),
			)
			metrics.RemoteCallsTotal.WithLabelValues("quota").Inc()
			return res, err
		case ClassPermanentMedia:
			log.Warn("Non-recoverable media error, stopping retries", zap.String("output", diag))
			metrics.RemoteCallsTotal.WithLabelValues("permanent").Inc()
			return res, &domain.PermanentMediaError{Output: diag}
		}

		if attempt == attempts {
			break
		}

		if call.QuotaRelevant {
			if err := e.checkQuota(ctx, call.EstimatedCost); err != nil {
				metrics.RemoteCallsTotal.WithLabelValues("quota").Inc()
				return res, err
			}
		}

		wait := call.Policy.Cooldown * time.Duration(attempt)
		if class == ClassRateLimit {
			wait *= 2
			log.Warn("Temporary rate limit, pausing before retry",
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
			)
		} else {
			log.Warn("Remote call failed, retrying",
				zap.String("output", diag),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
			)
		}
		metrics.RemoteCallRetriesTotal.WithLabelValues(class.String()).Inc()

		if err := e.sleep(ctx, wait); err != nil {
			return res, fmt.Errorf("retry backoff: %w", err)
		}
	}

	metrics.RemoteCallsTotal.WithLabelValues("exhausted").Inc()
	return last, &domain.RetriesExhaustedError{Attempts: attempts, LastOutput: last.Diagnostic()}
}

func (e *Executor) checkQuota(ctx context.Context, cost int64) error {
	rec := e.ledger.Load(ctx)
	d := e.gate.CheckRequests(rec.RequestsUsed, cost)
	if !d.Stopped() {
		return nil
	}
	return domain.NewQuotaExceeded(domain.QuotaRequests, e.clock.NextReset(), e.clock.Now())
}

// commit charges cost to the ledger. Only a completed operation feeds the estimator.
func (e *Executor) commit(ctx context.Context, cost int64, completed bool) {
	if _, err := e.ledger.IncrementRequests(ctx, cost); err != nil {
		e.logger.Warn("Failed to record request usage", zap.Int64("requests", cost), zap.Error(err))
	}
	if !completed {
		return
	}
	e.estimator.Observe(ctx, cost)
	e.logger.Info("Request usage",
		zap.Int64("estimated", cost),
		zap.Float64("rolling_avg", e.estimator.Mean(ctx)),
	)
	if e.reconcile != nil {
		e.reconcile.AfterOperation(ctx)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
