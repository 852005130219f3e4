package quota

import (
	"math"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	"github.com/kailas-cloud/gphotosync/internal/metrics"
)

// GateConfig holds the daily limits and the graduated thresholds.
type GateConfig struct {
	RequestLimit int64
	ByteLimit    int64
	Warning      float64
	Critical     float64
	Stop         float64
	Reserve      int64
}

// Gate decides, before every remote operation, whether to proceed, warn, or halt.
// It is pure with respect to the ledger: it never increments anything.
type Gate struct {
	cfg    GateConfig
	logger *zap.Logger
}

// NewGate creates a Gate.
func NewGate(cfg GateConfig, logger *zap.Logger) *Gate {
	metrics.QuotaRequestsLimit.Set(float64(cfg.RequestLimit))
	return &Gate{cfg: cfg, logger: logger}
}

// Config returns the gate configuration.
func (g *Gate) Config() GateConfig { return g.cfg }

// RequestStopLine is the request count at which work halts.
func (g *Gate) RequestStopLine() int64 { return stopLine(g.cfg.RequestLimit, g.cfg.Stop) }

// ByteStopLine is the byte volume at which work halts.
func (g *Gate) ByteStopLine() int64 { return stopLine(g.cfg.ByteLimit, g.cfg.Stop) }

// CheckRequests evaluates actual usage before projected usage, so a favorable
// projection never masks an already-exhausted day.
func (g *Gate) CheckRequests(used, projected int64) quota.Decision {
	d := quota.Decision{Used: used, Projected: projected, Limit: g.cfg.RequestLimit}
	line := g.RequestStopLine()
	pct := ratio(used, g.cfg.RequestLimit)

	switch {
	case used >= line:
		d.Verdict, d.Reason = quota.Stop, quota.ReasonStopLine
		g.logger.Warn("Request stop threshold reached, stopping to prevent quota overrun",
			zap.Int64("used", used),
			zap.Int64("limit", g.cfg.RequestLimit),
			zap.Float64("percent", d.Percent()),
		)
	case used >= g.cfg.RequestLimit-g.cfg.Reserve:
		d.Verdict, d.Reason = quota.Stop, quota.ReasonReserve
		g.logger.Warn("Safe request limit exceeded, stopping to prevent quota overrun",
			zap.Int64("used", used),
			zap.Int64("limit", g.cfg.RequestLimit),
			zap.Int64("reserve", g.cfg.Reserve),
		)
	case used+projected >= line:
		d.Verdict, d.Reason = quota.Stop, quota.ReasonProjected
		g.logger.Warn("Projected requests would cross the stop threshold, stopping",
			zap.Int64("used", used),
			zap.Int64("projected_total", used+projected),
			zap.Int64("stop_line", line),
		)
	case pct >= g.cfg.Critical:
		d.Verdict, d.Level = quota.ProceedWithWarning, quota.LevelCritical
		g.logger.Warn("Critical request level",
			zap.Int64("used", used),
			zap.Int64("limit", g.cfg.RequestLimit),
			zap.Float64("percent", d.Percent()),
			zap.Int64("remaining", g.cfg.RequestLimit-used),
		)
	case pct >= g.cfg.Warning:
		d.Verdict, d.Level = quota.ProceedWithWarning, quota.LevelWarning
		g.logger.Warn("Request usage warning",
			zap.Int64("used", used),
			zap.Int64("limit", g.cfg.RequestLimit),
			zap.Float64("percent", d.Percent()),
			zap.Int64("remaining", g.cfg.RequestLimit-used),
		)
	default:
		d.Verdict = quota.Proceed
	}

	metrics.GateDecisionsTotal.WithLabelValues("requests", d.Verdict.String()).Inc()
	return d
}

// CheckBytes evaluates the byte quota using actual bytes plus the exact size of the next file.
func (g *Gate) CheckBytes(used, size int64) quota.Decision {
	d := quota.Decision{Used: used, Projected: size, Limit: g.cfg.ByteLimit}
	line := g.ByteStopLine()
	pct := ratio(used+size, g.cfg.ByteLimit)

	switch {
	case used >= line:
		d.Verdict, d.Reason = quota.Stop, quota.ReasonStopLine
	case pct >= g.cfg.Stop:
		d.Verdict, d.Reason = quota.Stop, quota.ReasonProjected
	case pct >= g.cfg.Critical:
		d.Verdict, d.Level = quota.ProceedWithWarning, quota.LevelCritical
	case pct >= g.cfg.Warning:
		d.Verdict, d.Level = quota.ProceedWithWarning, quota.LevelWarning
	default:
		d.Verdict = quota.Proceed
	}

	fields := []zap.Field{
		zap.String("uploaded", humanize.IBytes(uint64(used))),
		zap.String("limit", humanize.IBytes(uint64(g.cfg.ByteLimit))),
		zap.Float64("percent", d.ProjectedPercent()),
	}
	switch {
	case d.Stopped():
		g.logger.Warn("Upload volume limit reached, stopping to prevent quota overrun", fields...)
	case d.Level == quota.LevelCritical:
		g.logger.Warn("Critical upload volume level",
			append(fields, zap.String("remaining", humanize.IBytes(remaining(g.cfg.ByteLimit, used))))...)
	case d.Level == quota.LevelWarning:
		g.logger.Warn("Upload volume warning",
			append(fields, zap.String("remaining", humanize.IBytes(remaining(g.cfg.ByteLimit, used))))...)
	}

	metrics.GateDecisionsTotal.WithLabelValues("bytes", d.Verdict.String()).Inc()
	return d
}

// stopLine is floor(limit*fraction); the epsilon keeps 10000*0.95 at 9500 despite float error.
func stopLine(limit int64, fraction float64) int64 {
	return int64(math.Floor(float64(limit)*fraction + 1e-9))
}

func ratio(n, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(n) / float64(limit)
}

func remaining(limit, used int64) uint64 {
	if used >= limit {
		return 0
	}
	return uint64(limit - used)
}
