package model

import "time"

// SignalKind is the direction of a trend signal candidate.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
)

// Trigger identifies the rule that produced a trend signal.
type Trigger string

const (
	TriggerGoldenCross Trigger = "golden_cross"
	TriggerPullback    Trigger = "pullback"
	TriggerMACDTurn    Trigger = "macd_turn"
	TriggerWBottom     Trigger = "w_bottom"
	TriggerDeadCross   Trigger = "dead_cross"
	TriggerMA20Break   Trigger = "ma20_break"
)

// Priority orders same-score triggers deterministically: golden_cross >
// pullback > macd_turn > w_bottom on the buy side, dead_cross >
// ma20_break > macd_turn on the sell side. Lower value wins.
func (t Trigger) Priority() int {
	switch t {
	case TriggerGoldenCross, TriggerDeadCross:
		return 0
	case TriggerPullback, TriggerMA20Break:
		return 1
	case TriggerMACDTurn:
		return 2
	case TriggerWBottom:
		return 3
	default:
		return 4
	}
}

// TrendSignal is one BUY/SELL candidate emitted by the trend detector.
// At most one exists per (symbol, date, trigger).
type TrendSignal struct {
	Symbol  string
	Date    time.Time
	Kind    SignalKind
	Trigger Trigger
	Score   float64
	Note    string
}

// ID is the natural key of the signal, used to reference it from a Decision.
func (s TrendSignal) ID() string {
	return s.Symbol + "/" + s.Date.Format(DateLayout) + "/" + string(s.Trigger)
}
