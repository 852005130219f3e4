package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/config"
	"github.com/kailas-cloud/gphotosync/internal/db"
	dbFile "github.com/kailas-cloud/gphotosync/internal/db/file"
	"github.com/kailas-cloud/gphotosync/internal/domain/media"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	logpkg "github.com/kailas-cloud/gphotosync/internal/logger"
	"github.com/kailas-cloud/gphotosync/internal/metrics"
	historyrepo "github.com/kailas-cloud/gphotosync/internal/repository/history"
	ledgerrepo "github.com/kailas-cloud/gphotosync/internal/repository/ledger"
	recordsrepo "github.com/kailas-cloud/gphotosync/internal/repository/records"
	summaryrepo "github.com/kailas-cloud/gphotosync/internal/repository/summary"
	chiTransport "github.com/kailas-cloud/gphotosync/internal/transport/chi"
	"github.com/kailas-cloud/gphotosync/internal/transport/monitoring"
	"github.com/kailas-cloud/gphotosync/internal/transport/rclone"
	"github.com/kailas-cloud/gphotosync/internal/usecase/executor"
	healthuc "github.com/kailas-cloud/gphotosync/internal/usecase/health"
	ucquota "github.com/kailas-cloud/gphotosync/internal/usecase/quota"
	"github.com/kailas-cloud/gphotosync/internal/usecase/reconcile"
	"github.com/kailas-cloud/gphotosync/internal/usecase/upload"
	usageuc "github.com/kailas-cloud/gphotosync/internal/usecase/usage"
	"github.com/kailas-cloud/gphotosync/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	base, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = base.Sync() }()

	started := time.Now()
	runID := uuid.NewString()
	logger, logPath, closeRunLog, err := logpkg.WithRunLog(base, cfg.Logging.Dir, started)
	if err != nil {
		base.Error("Failed to open run log", zap.Error(err))
		return 1
	}
	defer func() { _ = closeRunLog() }()
	logger = logger.With(zap.String("run_id", runID))

	logger.Info("Starting gphotosync",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("source", cfg.Remotes.Source+":"+cfg.Remotes.SourcePath),
		zap.String("dest", cfg.Remotes.Dest),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("log", logPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logpkg.ContextWithLogger(ctx, logger)

	// Register metrics explicitly (no init())
	metrics.RegisterQuotaMetrics()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to open state storage", zap.Error(err))
		return 1
	}
	defer store.Close()

	// Summaries always land next to the run log, whatever the state driver.
	summaryStore, err := dbFile.NewStore(cfg.Logging.Dir)
	if err != nil {
		logger.Error("Failed to open log dir", zap.Error(err))
		return 1
	}

	clock := quota.NewClock(cfg.Location(), nil)
	ledger := ucquota.NewLedger(ledgerrepo.New(store), clock, cfg.Quota.InitialRequests, logger)
	gate := ucquota.NewGate(ucquota.GateConfig{
		RequestLimit: cfg.Quota.RequestLimit,
		ByteLimit:    cfg.Quota.ByteLimit,
		Warning:      cfg.Quota.Warning,
		Critical:     cfg.Quota.Critical,
		Stop:         cfg.Quota.Stop,
		Reserve:      cfg.Quota.Reserve,
	}, logger)
	estimator := buildEstimator(ctx, cfg.Estimator, store, clock, logger)

	runner := rclone.NewRunner(cfg.Transfer.Binary, time.Duration(cfg.Transfer.CommandTimeoutSec)*time.Second, logger)
	exec := executor.New(runner, ledger, gate, estimator, clock, logger)

	if cfg.Reconcile.Enabled {
		syncer := buildSyncer(cfg.Reconcile, ledger, clock, logger)
		if err := syncer.Sync(ctx); err != nil {
			logger.Info("Starting from local request estimate", zap.Error(err))
		}
		exec.WithReconciler(syncer)
	}

	usageSvc := usageuc.New(ledger, gate, estimator, clock)
	logUsage(ctx, logger, usageSvc, "Current quotas")

	if cfg.Metrics.Addr != "" {
		metrics.RegisterHTTPMetrics()
		srv := startStatusServer(cfg.Metrics, usageSvc, healthuc.New(store, runner), logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Metrics.ShutdownSec)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during status server shutdown", zap.Error(err))
			}
		}()
	}

	cmds := rclone.NewCommands(
		rclone.Remotes{Source: cfg.Remotes.Source, Dest: cfg.Remotes.Dest, SourcePath: cfg.Remotes.SourcePath},
		rclone.TransferOptions{
			Checkers:        cfg.Transfer.Checkers,
			Transfers:       cfg.Transfer.Transfers,
			Timeout:         time.Duration(cfg.Transfer.TimeoutSec) * time.Second,
			LowLevelRetries: cfg.Transfer.LowLevelRetries,
			Retries:         cfg.Transfer.Retries,
			BWLimit:         cfg.Transfer.BWLimit,
		},
		media.NewClassifier(cfg.Media.PhotoExt, cfg.Media.VideoExt, cfg.Media.IgnoredExt),
	)

	svc := upload.New(
		exec, cmds, ledger, gate, estimator,
		recordsrepo.New(store, logger), summaryrepo.New(summaryStore), clock, logger,
	).WithPolicies(upload.Policies{
		List: executor.RetryPolicy{
			MaxAttempts: cfg.Executor.ListAttempts,
			Cooldown:    time.Duration(cfg.Executor.ListCooldownSec) * time.Second,
		},
		Upload: executor.RetryPolicy{
			MaxAttempts: cfg.Executor.UploadAttempts,
			Cooldown:    time.Duration(cfg.Executor.UploadCooldownSec) * time.Second,
		},
	}).WithRequestLimit(cfg.Quota.RequestLimit)

	sum, err := svc.Run(ctx, runID)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("Stopped by user")
	case err != nil:
		logger.Error("Sync failed", zap.Error(err))
		return 1
	case sum.QuotaExceeded:
		logger.Info("Exiting due to daily quota limit",
			zap.Time("reset_at", *sum.QuotaResetTime),
		)
	}

	logUsage(context.WithoutCancel(ctx), logger, usageSvc, "Final quotas")
	return 0
}

func buildEstimator(
	ctx context.Context, cfg config.EstimatorConfig, store db.Store, clock quota.Clock, logger *zap.Logger,
) ucquota.Estimator {
	if cfg.Strategy == "static" {
		return ucquota.NewStaticEstimator(cfg.DefaultMean, cfg.FirstSurcharge)
	}
	return ucquota.NewRollingEstimator(
		ctx, historyrepo.New(store), clock, cfg.HistorySize, cfg.DefaultMean, cfg.FirstSurcharge, logger,
	)
}

func buildSyncer(cfg config.ReconcileConfig, ledger reconcile.LedgerWriter, clock quota.Clock, logger *zap.Logger) *reconcile.Syncer {
	var tokens monitoring.TokenSource = monitoring.CommandToken{Args: cfg.TokenCommand}
	if cfg.Token != "" {
		tokens = monitoring.StaticToken(cfg.Token)
	}
	opts := []monitoring.Option{monitoring.WithService(cfg.Service)}
	if cfg.BaseURL != "" {
		opts = append(opts, monitoring.WithBaseURL(cfg.BaseURL))
	}
	source := monitoring.New(cfg.ProjectID, tokens, clock, opts...)
	return reconcile.NewSyncer(source, ledger, time.Duration(cfg.IntervalSec)*time.Second, cfg.EveryOps, logger)
}

func logUsage(ctx context.Context, logger *zap.Logger, svc *usageuc.Service, msg string) {
	r := svc.GetReport(ctx)
	logger.Info(msg,
		zap.Int64("requests_used", r.Requests().Used()),
		zap.Int64("requests_limit", r.Requests().Limit()),
		zap.Int64("requests_remaining", r.Requests().Remaining()),
		zap.String("uploaded", humanize.IBytes(uint64(r.Bytes().Used()))),
		zap.String("bytes_remaining", humanize.IBytes(uint64(r.Bytes().Remaining()))),
		zap.Float64("estimate_per_upload", r.Estimate()),
		zap.Time("resets_at", time.UnixMilli(r.Requests().ResetsAt())),
	)
}

func startStatusServer(
	cfg config.MetricsConfig, usage *usageuc.Service, health *healthuc.Service, logger *zap.Logger,
) *http.Server {
	server := chiTransport.NewServer(usage, health, logger).WithAPIKeys(cfg.APIKeys)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting status server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Status server error", zap.Error(err))
		}
	}()
	return srv
}
