package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domusage "github.com/kailas-cloud/gphotosync/internal/domain/usage"
	"github.com/kailas-cloud/gphotosync/internal/domain/usage/budget"
	"github.com/kailas-cloud/gphotosync/internal/metrics"
	healthuc "github.com/kailas-cloud/gphotosync/internal/usecase/health"
)

// UsageReporter builds the current quota usage report.
type UsageReporter interface {
	GetReport(ctx context.Context) domusage.Report
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the status endpoints of a running sync.
type Server struct {
	usage   UsageReporter
	health  HealthChecker
	apiKeys []string
	logger  *zap.Logger
}

// NewServer creates a status server.
func NewServer(usage UsageReporter, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{usage: usage, health: health, logger: logger}
}

// WithAPIKeys enables bearer authentication on non-exempt routes.
func (s *Server) WithAPIKeys(keys []string) *Server {
	s.apiKeys = keys
	return s
}

// Router returns the HTTP handler with middleware applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.HealthCheck)
	r.Get("/v1/usage", s.GetUsage)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	return r
}

type budgetResponse struct {
	Limit       int64     `json:"limit"`
	Used        int64     `json:"used"`
	Remaining   int64     `json:"remaining"`
	Percent     float64   `json:"percent"`
	IsExhausted bool      `json:"is_exhausted"`
	ResetsAt    time.Time `json:"resets_at"`
}

type usageResponse struct {
	Date              string         `json:"date"`
	PeriodStartAt     time.Time      `json:"period_start_at"`
	PeriodEndAt       time.Time      `json:"period_end_at"`
	Requests          budgetResponse `json:"requests"`
	Bytes             budgetResponse `json:"bytes"`
	EstimatePerUpload float64        `json:"estimate_requests_per_upload"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	report := s.usage.GetReport(r.Context())

	writeJSON(w, http.StatusOK, usageResponse{
		Date:              report.Date(),
		PeriodStartAt:     time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:       time.UnixMilli(report.PeriodEnd()).UTC(),
		Requests:          budgetToResponse(report.Requests()),
		Bytes:             budgetToResponse(report.Bytes()),
		EstimatePerUpload: report.Estimate(),
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func budgetToResponse(b budget.Budget) budgetResponse {
	return budgetResponse{
		Limit:       b.Limit(),
		Used:        b.Used(),
		Remaining:   b.Remaining(),
		Percent:     b.Percent(),
		IsExhausted: b.IsExhausted(),
		ResetsAt:    time.UnixMilli(b.ResetsAt()).UTC(),
	}
}

const (
	codeNotFound     = "not_found"
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
