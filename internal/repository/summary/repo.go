package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/gphotosync/internal/domain/summary"
)

// store is the consumer interface for summary persistence (ISP).
type store interface {
	Set(ctx context.Context, key string, value []byte) error
}

type failureRow struct {
	Reason    string  `json:"reason"`
	Timestamp *string `json:"timestamp"`
}

type summaryRow struct {
	RunID          string                `json:"run_id"`
	Started        string                `json:"started"`
	Finished       string                `json:"finished"`
	ProcessedFiles int                   `json:"processed_files"`
	UploadedFiles  int                   `json:"uploaded_files"`
	SkippedFiles   int                   `json:"skipped_files"`
	Errors         int                   `json:"errors"`
	AlbumsCreated  []string              `json:"albums_created"`
	ByAlbum        map[string]int        `json:"by_album"`
	DurationSec    float64               `json:"duration_sec"`
	QuotaExceeded  bool                  `json:"quota_exceeded"`
	QuotaResetTime *string               `json:"quota_reset_time"`
	RequestsUsed   int64                 `json:"api_requests_used"`
	UploadedBytes  int64                 `json:"uploaded_bytes"`
	FailedFiles    map[string]failureRow `json:"failed_files"`
}

// Repo writes one summary record per run, keyed by the run start time.
type Repo struct {
	store store
}

// New creates a summary repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// KeyFor returns the record key for a run started at t.
func KeyFor(t time.Time) string {
	return "summary_" + t.Format("20060102_150405")
}

// Save writes s and returns the key it was stored under.
func (r *Repo) Save(ctx context.Context, s *summary.Summary) (string, error) {
	data, err := json.MarshalIndent(toRow(s), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	key := KeyFor(s.Started)
	if err := r.store.Set(ctx, key, data); err != nil {
		return "", fmt.Errorf("set summary: %w", err)
	}
	return key, nil
}

func toRow(s *summary.Summary) summaryRow {
	row := summaryRow{
		RunID:          s.RunID,
		Started:        s.Started.Format(time.RFC3339),
		ProcessedFiles: s.ProcessedFiles,
		UploadedFiles:  s.UploadedFiles,
		SkippedFiles:   s.SkippedFiles,
		Errors:         s.Errors,
		AlbumsCreated:  s.Albums(),
		ByAlbum:        s.ByAlbum,
		DurationSec:    float64(s.Duration().Milliseconds()) / 1000,
		QuotaExceeded:  s.QuotaExceeded,
		RequestsUsed:   s.RequestsUsed,
		UploadedBytes:  s.UploadedBytes,
		FailedFiles:    make(map[string]failureRow, len(s.FailedFiles)),
	}
	if !s.Finished.IsZero() {
		row.Finished = s.Finished.Format(time.RFC3339)
	}
	if s.QuotaResetTime != nil {
		ts := s.QuotaResetTime.Format(time.RFC3339)
		row.QuotaResetTime = &ts
	}
	for p, f := range s.FailedFiles {
		fr := failureRow{Reason: f.Reason}
		if f.Timestamp != nil {
			ts := f.Timestamp.Format(time.RFC3339)
			fr.Timestamp = &ts
		}
		row.FailedFiles[p] = fr
	}
	return row
}
