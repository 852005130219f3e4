package budget

// Budget is a snapshot of one daily quota.
type Budget struct {
	limit    int64
	used     int64
	stopAt   int64
	resetsAt int64 // unix millis, rendered as RFC 3339 at the transport layer
}

// New creates a Budget snapshot. stopAt is the usage level at which the gate halts.
func New(limit, used, stopAt, resetsAt int64) Budget {
	return Budget{
		limit:    limit,
		used:     used,
		stopAt:   stopAt,
		resetsAt: resetsAt,
	}
}

// Limit returns the nominal daily cap.
func (b Budget) Limit() int64 { return b.limit }

// Used returns the amount consumed today.
func (b Budget) Used() int64 { return b.used }

// Remaining returns what is left before the stop line, never negative.
func (b Budget) Remaining() int64 {
	if r := b.stopAt - b.used; r > 0 {
		return r
	}
	return 0
}

// Percent returns used as a percentage of the nominal limit.
func (b Budget) Percent() float64 {
	if b.limit <= 0 {
		return 0
	}
	return float64(b.used) / float64(b.limit) * 100
}

// IsExhausted reports whether usage has reached the stop line.
func (b Budget) IsExhausted() bool { return b.limit > 0 && b.used >= b.stopAt }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }
