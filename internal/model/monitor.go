package model

import "time"

// MonitorAction is the intraday gate verdict for a prior BUY decision.
type MonitorAction string

const (
	MonitorExecute MonitorAction = "EXECUTE"
	MonitorWait    MonitorAction = "WAIT"
	MonitorStop    MonitorAction = "STOP"
)

// MonitorEval is one logical open-monitor record per (symbol, eval date,
// time bucket). Re-evaluation within the same bucket replaces it.
type MonitorEval struct {
	Symbol     string
	EvalDate   time.Time
	EvalTime   string // "HH:MM" bucket within the session
	Action     MonitorAction
	GapPct     float64
	VWAPDevPct float64
	Reasons    []string
	SignalDate time.Time // trade date of the underlying BUY decision
}
