package quota

// Source is the provenance tag of the current request counter. Informational only.
type Source string

// Provenance values.
const (
	SourceLocalEstimate Source = "local-estimate"
	SourceReconciled    Source = "externally-reconciled"
	SourceManualSeed    Source = "manually-seeded"
)

// Ledger is the per-day quota record. Exactly one record is current at a time.
type Ledger struct {
	Date          string
	RequestsUsed  int64
	BytesUploaded int64
	Source        Source
}

// Fresh returns a zeroed record for date, optionally starting at seed requests.
func Fresh(date string, seed int64) Ledger {
	l := Ledger{Date: date, Source: SourceLocalEstimate}
	if seed > 0 {
		l.RequestsUsed = seed
		l.Source = SourceManualSeed
	}
	return l
}

// AddRequests increases the request counter. Negative n is clamped so the counter never drops below zero.
func (l *Ledger) AddRequests(n int64) {
	l.RequestsUsed += n
	if l.RequestsUsed < 0 {
		l.RequestsUsed = 0
	}
}

// AddBytes increases the byte counter. Negative n is ignored.
func (l *Ledger) AddBytes(n int64) {
	if n > 0 {
		l.BytesUploaded += n
	}
}
