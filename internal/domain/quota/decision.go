package quota

// Verdict is the gate outcome.
type Verdict int

// Verdicts, in ascending severity.
const (
	Proceed Verdict = iota
	ProceedWithWarning
	Stop
)

func (v Verdict) String() string {
	switch v {
	case Proceed:
		return "proceed"
	case ProceedWithWarning:
		return "warn"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Level qualifies a ProceedWithWarning verdict.
type Level string

// Warning levels.
const (
	LevelNone     Level = ""
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Reason names the check that produced a Stop.
type Reason string

// Stop reasons, in evaluation order.
const (
	ReasonNone      Reason = ""
	ReasonStopLine  Reason = "stop-line"
	ReasonReserve   Reason = "reserve"
	ReasonProjected Reason = "projected"
)

// Decision is the result of a gate evaluation.
type Decision struct {
	Verdict   Verdict
	Level     Level
	Reason    Reason
	Used      int64
	Projected int64
	Limit     int64
}

// Stopped reports whether the caller must halt.
func (d Decision) Stopped() bool { return d.Verdict == Stop }

// Percent returns actual usage as a percentage of the limit.
func (d Decision) Percent() float64 {
	if d.Limit <= 0 {
		return 0
	}
	return float64(d.Used) / float64(d.Limit) * 100
}

// ProjectedPercent returns projected usage as a percentage of the limit.
func (d Decision) ProjectedPercent() float64 {
	if d.Limit <= 0 {
		return 0
	}
	return float64(d.Used+d.Projected) / float64(d.Limit) * 100
}
