package usage

import "github.com/kailas-cloud/gphotosync/internal/domain/usage/budget"

// Report is the daily quota usage for both the request and the byte budgets.
type Report struct {
	date        string
	periodStart int64
	periodEnd   int64
	requests    budget.Budget
	bytes       budget.Budget
	estimate    float64
}

// NewReport creates a usage report. start and end are unix millis.
func NewReport(date string, start, end int64, requests, bytes budget.Budget, estimate float64) Report {
	return Report{
		date:        date,
		periodStart: start,
		periodEnd:   end,
		requests:    requests,
		bytes:       bytes,
		estimate:    estimate,
	}
}

// Date returns the reference-timezone calendar day.
func (r *Report) Date() string { return r.date }

// PeriodStart returns the day start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the day end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Requests returns the API request budget.
func (r *Report) Requests() budget.Budget { return r.requests }

// Bytes returns the upload byte budget.
func (r *Report) Bytes() budget.Budget { return r.bytes }

// Estimate returns the current per-upload request estimate.
func (r *Report) Estimate() float64 { return r.estimate }
