package model

import "time"

// Action is the final daily recommendation for a symbol.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionStop Action = "STOP"
	ActionHold Action = "HOLD"
)

// RiskFlag is an externally supplied per-symbol risk marker.
type RiskFlag string

const (
	RiskSpecialTreatment RiskFlag = "special_treatment"
	RiskAbnormalMovement RiskFlag = "abnormal_movement"
)

// Regime is the broad-market environment verdict.
type Regime string

const (
	RegimeRiskOn  Regime = "RISK_ON"
	RegimeRiskOff Regime = "RISK_OFF"
)

// Decision is the arbitrated daily verdict for one (symbol, date).
// Immutable once written; recomputation with the same inputs must
// produce the same Decision.
type Decision struct {
	Symbol    string
	Date      time.Time
	Action    Action
	Reasons   []string // every fired rule, in evaluation order
	SignalIDs []string // contributing TrendSignal IDs
	Score     float64  // score of the winning candidate, 0 when none

	// ValidDays is how many further sessions a BUY remains executable.
	ValidDays int
}
