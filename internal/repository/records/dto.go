package records

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/gphotosync/internal/domain/record"
)

// naiveLayout matches timestamps written without a zone by older runs.
const naiveLayout = "2006-01-02T15:04:05.999999"

type failureRow struct {
	Reason    string  `json:"reason"`
	Timestamp *string `json:"timestamp"`
}

func failuresToJSON(m map[string]record.Failure) ([]byte, error) {
	rows := make(map[string]failureRow, len(m))
	for p, f := range m {
		row := failureRow{Reason: f.Reason}
		if f.Timestamp != nil {
			ts := f.Timestamp.Format(time.RFC3339Nano)
			row.Timestamp = &ts
		}
		rows[p] = row
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}
	return data, nil
}

// failuresFromJSON accepts the mapping form and the legacy bare array of paths.
func failuresFromJSON(data []byte) (map[string]record.Failure, bool, error) {
	var legacy []string
	if err := json.Unmarshal(data, &legacy); err == nil {
		return record.FromLegacyList(legacy), true, nil
	}

	var rows map[string]failureRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false, fmt.Errorf("unmarshal failed: %w", err)
	}
	out := make(map[string]record.Failure, len(rows))
	for p, row := range rows {
		f := record.Failure{Reason: row.Reason}
		if row.Timestamp != nil {
			if ts, ok := parseTimestamp(*row.Timestamp); ok {
				f.Timestamp = &ts
			}
		}
		out[p] = f
	}
	return out, false, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, true
	}
	if ts, err := time.ParseInLocation(naiveLayout, s, time.Local); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
