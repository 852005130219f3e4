package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
)

// ledgerRow is the on-disk record. api_requests is the field name older runs wrote.
type ledgerRow struct {
	Date          string `json:"date"`
	RequestsUsed  *int64 `json:"requests_used,omitempty"`
	APIRequests   *int64 `json:"api_requests,omitempty"`
	UploadedBytes int64  `json:"uploaded_bytes"`
	Source        string `json:"source,omitempty"`
}

func ledgerToJSON(l quota.Ledger) ([]byte, error) {
	used := l.RequestsUsed
	row := ledgerRow{
		Date:          l.Date,
		RequestsUsed:  &used,
		UploadedBytes: l.BytesUploaded,
		Source:        string(l.Source),
	}
	data, err := json.MarshalIndent(row, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal ledger: %w", err)
	}
	return data, nil
}

func ledgerFromJSON(data []byte) (quota.Ledger, error) {
	var row ledgerRow
	if err := json.Unmarshal(data, &row); err != nil {
		return quota.Ledger{}, fmt.Errorf("unmarshal ledger: %w", err)
	}
	if row.Date == "" {
		return quota.Ledger{}, fmt.Errorf("ledger has no date")
	}

	l := quota.Ledger{
		Date:          row.Date,
		BytesUploaded: row.UploadedBytes,
		Source:        quota.Source(row.Source),
	}
	switch {
	case row.RequestsUsed != nil:
		l.RequestsUsed = *row.RequestsUsed
	case row.APIRequests != nil:
		l.RequestsUsed = *row.APIRequests
	}
	if l.Source == "" {
		l.Source = quota.SourceLocalEstimate
	}
	if l.RequestsUsed < 0 || l.BytesUploaded < 0 {
		return quota.Ledger{}, fmt.Errorf("ledger has negative counters")
	}
	return l, nil
}
