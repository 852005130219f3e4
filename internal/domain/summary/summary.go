package summary

import (
	"sort"
	"time"

	"github.com/kailas-cloud/gphotosync/internal/domain/record"
)

// Summary is the per-run accounting written once at completion or quota stop.
type Summary struct {
	RunID          string
	Started        time.Time
	Finished       time.Time
	ProcessedFiles int
	UploadedFiles  int
	SkippedFiles   int
	Errors         int
	ByAlbum        map[string]int
	QuotaExceeded  bool
	QuotaResetTime *time.Time
	RequestsUsed   int64
	UploadedBytes  int64
	FailedFiles    map[string]record.Failure

	albums map[string]struct{}
}

// New starts a summary for a run.
func New(runID string, started time.Time) *Summary {
	return &Summary{
		RunID:       runID,
		Started:     started,
		ByAlbum:     make(map[string]int),
		FailedFiles: make(map[string]record.Failure),
		albums:      make(map[string]struct{}),
	}
}

// TouchAlbum records that an album was targeted during the run.
func (s *Summary) TouchAlbum(album string) {
	s.albums[album] = struct{}{}
}

// RecordUpload counts a successful transfer into album.
func (s *Summary) RecordUpload(album string) {
	s.UploadedFiles++
	s.ByAlbum[album]++
}

// RecordError counts a per-file failure.
func (s *Summary) RecordError() { s.Errors++ }

// RecordSkip counts an item skipped because it was already handled.
func (s *Summary) RecordSkip() { s.SkippedFiles++ }

// MarkQuotaExceeded flags the run as stopped by quota.
func (s *Summary) MarkQuotaExceeded(resetAt time.Time) {
	s.QuotaExceeded = true
	t := resetAt
	s.QuotaResetTime = &t
}

// Finish stamps the end time and the final ledger snapshot.
func (s *Summary) Finish(at time.Time, requests, bytes int64, failed map[string]record.Failure) {
	s.Finished = at
	s.RequestsUsed = requests
	s.UploadedBytes = bytes
	s.FailedFiles = failed
}

// Albums returns touched albums, sorted.
func (s *Summary) Albums() []string {
	out := make([]string, 0, len(s.albums))
	for a := range s.albums {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Duration returns the wall time of the run. Zero until Finish.
func (s *Summary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}
