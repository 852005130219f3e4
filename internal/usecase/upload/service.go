package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/domain"
	"github.com/kailas-cloud/gphotosync/internal/domain/media"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	"github.com/kailas-cloud/gphotosync/internal/domain/record"
	"github.com/kailas-cloud/gphotosync/internal/domain/summary"
	"github.com/kailas-cloud/gphotosync/internal/metrics"
	"github.com/kailas-cloud/gphotosync/internal/usecase/executor"
)

const progressEvery = 100

// Policies holds the retry policies of listing and upload calls.
type Policies struct {
	List   executor.RetryPolicy
	Upload executor.RetryPolicy
}

// DefaultPolicies returns listing 3x5s and upload 5x30s.
func DefaultPolicies() Policies {
	return Policies{
		List:   executor.RetryPolicy{MaxAttempts: 3, Cooldown: 5 * time.Second},
		Upload: executor.RetryPolicy{MaxAttempts: 5, Cooldown: 30 * time.Second},
	}
}

// Service drives one sync run: list, skip known files, upload the rest into albums.
type Service struct {
	exec         Executor
	cmds         Commands
	ledger       Ledger
	gate         ByteGate
	estimator    Estimator
	records      RecordRepo
	summaries    SummaryRepo
	clock        quota.Clock
	policies     Policies
	requestLimit int64
	logger       *zap.Logger

	albums map[string]struct{}
}

// New creates an upload service.
func New(
	exec Executor, cmds Commands, ledger Ledger, gate ByteGate, estimator Estimator,
	records RecordRepo, summaries SummaryRepo, clock quota.Clock, logger *zap.Logger,
) *Service {
	return &Service{
		exec:      exec,
		cmds:      cmds,
		ledger:    ledger,
		gate:      gate,
		estimator: estimator,
		records:   records,
		summaries: summaries,
		clock:     clock,
		policies:  DefaultPolicies(),
		logger:    logger,
		albums:    make(map[string]struct{}),
	}
}

// WithPolicies overrides the retry policies.
func (s *Service) WithPolicies(p Policies) *Service {
	s.policies = p
	return s
}

// WithRequestLimit sets the request limit shown in progress lines.
func (s *Service) WithRequestLimit(limit int64) *Service {
	s.requestLimit = limit
	return s
}

// Run executes one sync pass. A quota stop is not an error: the returned summary
// has QuotaExceeded set. The summary is persisted on every exit path.
func (s *Service) Run(ctx context.Context, runID string) (*summary.Summary, error) {
	started := s.clock.Now()
	sum := summary.New(runID, started)

	set, err := s.records.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer s.finish(ctx, sum, set)

	files := s.list(ctx)
	total := len(files)
	sum.ProcessedFiles = total
	s.logger.Info("Files found", zap.Int("total", total))

	processed := 0
	for i, f := range files {
		if ctx.Err() != nil {
			s.logger.Info("Stopped by user", zap.Int("position", i), zap.Int("total", total))
			return sum, ctx.Err()
		}

		if s.skip(set, f) {
			sum.RecordSkip()
			metrics.FilesTotal.WithLabelValues("skipped").Inc()
			if i+1 == total {
				s.progress(ctx, i+1, total, processed, started)
			}
			continue
		}

		processed++
		err := s.uploadOne(ctx, set, sum, f)
		var qe *domain.QuotaExceededError
		if errors.As(err, &qe) {
			sum.MarkQuotaExceeded(qe.ResetAt)
			s.logger.Warn("Stopping due to daily quota limit",
				zap.String("quota", string(qe.Kind)),
				zap.Int("uploaded", sum.UploadedFiles),
				zap.Int("errors", sum.Errors),
				zap.Time("reset_at", qe.ResetAt),
				zap.Int64("seconds_until_reset", qe.SecondsUntilReset),
			)
			return sum, nil
		}

		if processed%progressEvery == 0 || i+1 == total {
			s.progress(ctx, i+1, total, processed, started)
		}
	}

	s.logger.Info("Completed",
		zap.Int("uploaded", sum.UploadedFiles),
		zap.Int("errors", sum.Errors),
		zap.Int("skipped", sum.SkippedFiles),
	)
	return sum, nil
}

func (s *Service) list(ctx context.Context) []media.File {
	res, err := s.exec.Execute(ctx, executor.Call{
		Name:   "list",
		Args:   s.cmds.ListArgs(),
		Policy: s.policies.List,
	})
	if err != nil {
		s.logger.Error("Failed to list source files", zap.Error(err))
		return nil
	}
	files, err := s.cmds.ParseListing([]byte(res.Stdout))
	if err != nil {
		s.logger.Error("Failed to parse source listing", zap.Error(err))
		return nil
	}
	return files
}

func (s *Service) skip(set *record.Set, f media.File) bool {
	skip, failure := set.Skip(f.Path)
	if failure != nil {
		s.logger.Info("Skipping previously failed file",
			zap.String("path", f.Path),
			zap.String("reason", failure.Reason),
		)
	}
	if skip {
		return true
	}
	kind := s.cmds.Kind(f.Path)
	return kind != media.KindPhoto && kind != media.KindVideo
}

// uploadOne returns only quota errors; per-file failures are recorded and swallowed.
func (s *Service) uploadOne(ctx context.Context, set *record.Set, sum *summary.Summary, f media.File) error {
	kind := s.cmds.Kind(f.Path)
	album := media.Album(f.Path, kind)
	sum.TouchAlbum(album)
	log := s.logger.With(zap.String("path", f.Path), zap.String("album", album))

	rec := s.ledger.Load(ctx)
	if d := s.gate.CheckBytes(rec.BytesUploaded, f.Size); d.Stopped() {
		return domain.NewQuotaExceeded(domain.QuotaBytes, s.clock.NextReset(), s.clock.Now())
	}

	first := s.markAlbum(album)
	if first {
		log.Info("Album will be created on first upload if missing")
	}
	cost := s.estimator.EstimateCost(ctx, first)

	_, err := s.exec.Execute(ctx, executor.Call{
		Name:          "upload",
		Args:          s.cmds.CopyArgs(f.Path, album),
		QuotaRelevant: true,
		EstimatedCost: cost,
		Policy:        s.policies.Upload,
	})

	var qe *domain.QuotaExceededError
	var pe *domain.PermanentMediaError
	switch {
	case err == nil:
		if _, err := s.ledger.IncrementBytes(ctx, f.Size); err != nil {
			log.Warn("Failed to record uploaded bytes", zap.Error(err))
		}
		set.MarkDone(f.Path)
		if err := s.records.SaveDone(ctx, set); err != nil {
			log.Error("Failed to save upload state", zap.Error(err))
		}
		sum.RecordUpload(album)
		metrics.FilesTotal.WithLabelValues("uploaded").Inc()
		log.Info("Uploaded", zap.String("size", humanize.IBytes(uint64(f.Size))))
		return nil
	case errors.As(err, &qe):
		return err
	case errors.As(err, &pe):
		sum.RecordError()
		set.MarkFailed(f.Path, record.PermanentRejectionReason, s.clock.Now())
		if err := s.records.SaveFailed(ctx, set); err != nil {
			log.Error("Failed to save failed files", zap.Error(err))
		}
		if err := s.records.SaveDone(ctx, set); err != nil {
			log.Error("Failed to save upload state", zap.Error(err))
		}
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		log.Warn("Skipping permanently rejected file", zap.String("reason", record.PermanentRejectionReason))
		return nil
	default:
		sum.RecordError()
		metrics.FilesTotal.WithLabelValues("error").Inc()
		log.Error("Upload failed", zap.Error(err))
		return nil
	}
}

func (s *Service) markAlbum(album string) bool {
	if _, ok := s.albums[album]; ok {
		return false
	}
	s.albums[album] = struct{}{}
	return true
}

func (s *Service) progress(ctx context.Context, pos, total, processed int, started time.Time) {
	elapsed := s.clock.Now().Sub(started).Seconds()
	var eta float64
	if processed > 0 && elapsed > 0 {
		rate := float64(processed) / elapsed
		eta = float64(total-pos) / rate / 60
	}
	rec := s.ledger.Load(ctx)
	s.logger.Info("Progress",
		zap.Int("position", pos),
		zap.Int("total", total),
		zap.Float64("percent", float64(pos)/float64(total)*100),
		zap.Int("processed", processed),
		zap.Float64("eta_min", eta),
		zap.Int64("requests_used", rec.RequestsUsed),
		zap.Int64("requests_limit", s.requestLimit),
		zap.String("uploaded", humanize.IBytes(uint64(rec.BytesUploaded))),
	)
}

func (s *Service) finish(ctx context.Context, sum *summary.Summary, set *record.Set) {
	ctx = context.WithoutCancel(ctx)
	if err := s.records.SaveDone(ctx, set); err != nil {
		s.logger.Error("Failed to save upload state", zap.Error(err))
	}
	rec := s.ledger.Load(ctx)
	sum.Finish(s.clock.Now(), rec.RequestsUsed, rec.BytesUploaded, set.Failed())
	key, err := s.summaries.Save(ctx, sum)
	if err != nil {
		s.logger.Error("Failed to save run summary", zap.Error(err))
		return
	}
	s.logger.Info("Report saved", zap.String("key", key), zap.Duration("duration", sum.Duration()))
}
