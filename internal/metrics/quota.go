package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quota and sync Prometheus metrics.
var (
	QuotaRequestsUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gphotosync",
			Name:      "quota_requests_used",
			Help:      "API requests consumed today according to the ledger",
		},
	)

	QuotaRequestsLimit = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gphotosync",
			Name:      "quota_requests_limit",
			Help:      "Configured daily API request limit",
		},
	)

	QuotaBytesUploaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gphotosync",
			Name:      "quota_bytes_uploaded",
			Help:      "Bytes uploaded today according to the ledger",
		},
	)

	EstimateRequestsPerUpload = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gphotosync",
			Name:      "estimate_requests_per_upload",
			Help:      "Current mean request cost per upload",
		},
	)

	RemoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gphotosync",
			Name:      "remote_calls_total",
			Help:      "Remote calls by final outcome",
		},
		[]string{"outcome"}, // success / quota / permanent / exhausted
	)

	RemoteCallRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gphotosync",
			Name:      "remote_call_retries_total",
			Help:      "Retried remote call attempts by failure class",
		},
		[]string{"reason"}, // rate_limit / generic
	)

	RemoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gphotosync",
			Name:      "remote_call_duration_seconds",
			Help:      "Duration of a single remote call attempt in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"quota_relevant"},
	)

	FilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gphotosync",
			Name:      "files_total",
			Help:      "Files handled by the sync session by result",
		},
		[]string{"result"}, // uploaded / failed / error / skipped
	)

	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gphotosync",
			Name:      "gate_decisions_total",
			Help:      "Quota gate decisions",
		},
		[]string{"quota", "decision"},
	)

	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gphotosync",
			Name:      "reconcile_total",
			Help:      "Reconciliation attempts against the authoritative usage source",
		},
		[]string{"status"}, // ok / unavailable / error
	)
)

var quotaMetricsRegistered bool

// RegisterQuotaMetrics registers quota and sync metrics. Must be called once from main.
func RegisterQuotaMetrics() {
	if quotaMetricsRegistered {
		return
	}
	prometheus.MustRegister(QuotaRequestsUsed)
	prometheus.MustRegister(QuotaRequestsLimit)
	prometheus.MustRegister(QuotaBytesUploaded)
	prometheus.MustRegister(EstimateRequestsPerUpload)
	prometheus.MustRegister(RemoteCallsTotal)
	prometheus.MustRegister(RemoteCallRetriesTotal)
	prometheus.MustRegister(RemoteCallDuration)
	prometheus.MustRegister(FilesTotal)
	prometheus.MustRegister(GateDecisionsTotal)
	prometheus.MustRegister(ReconcileTotal)
	quotaMetricsRegistered = true
}
