// Package monitor re-validates prior BUY decisions against live
// intraday conditions, producing EXECUTE/WAIT/STOP. Thresholds are
// volatility-scaled: gap bands widen with ATR instead of being fixed
// percentages, clamped to the configured hard rails.
package monitor

import (
	"fmt"
	"time"

	"TrendSentinel/internal/model"
)

// Params holds the gate thresholds.
type Params struct {
	MaxGapUpPct       float64       // hard ceiling for the upper gap band
	MaxGapDownPct     float64       // hard floor for the lower gap band (negative)
	GapBandUpATR      float64       // upper band width in atr14/prior_close units
	GapBandDownATR    float64       // lower band width in atr14/prior_close units
	VWAPBreakPct      float64       // price below vwap by this fraction forces STOP (negative)
	LimitUpTriggerPct float64       // open gain percentage treated as limit-up
	QuoteMaxAge       time.Duration // staleness bound for live quotes
}

func DefaultParams() Params {
	return Params{
		MaxGapUpPct:       0.05,
		MaxGapDownPct:     -0.03,
		GapBandUpATR:      2.0,
		GapBandDownATR:    1.5,
		VWAPBreakPct:      -0.015,
		LimitUpTriggerPct: 9.7,
		QuoteMaxAge:       2 * time.Minute,
	}
}

// Input is one symbol's evaluation context: the prior BUY decision, the
// indicator levels it was made on, and the live quote (nil when the
// feed had nothing for the symbol).
type Input struct {
	Decision   model.Decision
	PriorClose float64
	MA20       float64
	ATR14      float64
	Quote      *model.Quote
	EvalAt     time.Time
}

// Gate evaluates inputs in a fixed check order. Evaluation is pure:
// identical inputs produce an identical MonitorEval, so re-running
// within a session replaces rather than duplicates.
type Gate struct {
	params Params
}

func NewGate(p Params) *Gate { return &Gate{params: p} }

// Evaluate runs the check sequence for one symbol. Check order is part
// of the contract: gap bands, limit-up, VWAP break, then the
// EXECUTE/WAIT split; the first STOP short-circuits.
func (g *Gate) Evaluate(in Input) model.MonitorEval {
	ev := model.MonitorEval{
		Symbol:     in.Decision.Symbol,
		EvalDate:   day(in.EvalAt),
		EvalTime:   bucket(in.EvalAt),
		SignalDate: in.Decision.Date,
	}

	// Missing or stale quote: never STOP or EXECUTE on absent data.
	if in.Quote == nil || in.Quote.Price <= 0 ||
		(g.params.QuoteMaxAge > 0 && in.EvalAt.Sub(in.Quote.Timestamp) > g.params.QuoteMaxAge) {
		ev.Action = model.MonitorWait
		ev.Reasons = append(ev.Reasons, "quote_unavailable")
		return ev
	}
	q := in.Quote

	dayOpen := q.DayOpen
	if dayOpen <= 0 {
		// Pre-open the feed reports 0 for day_open; the latest price is
		// the best available proxy.
		dayOpen = q.Price
		ev.Reasons = append(ev.Reasons, "open_proxy_latest")
	}
	if in.PriorClose <= 0 {
		ev.Action = model.MonitorWait
		ev.Reasons = append(ev.Reasons, "quote_unavailable")
		return ev
	}

	gap := (dayOpen - in.PriorClose) / in.PriorClose
	ev.GapPct = gap
	if q.VWAP > 0 {
		ev.VWAPDevPct = (q.Price - q.VWAP) / q.VWAP
	}

	upper, lower := g.gapBands(in)

	// 1. Gap check against the ATR-scaled bands.
	if gap > upper {
		ev.Action = model.MonitorStop
		ev.Reasons = append(ev.Reasons, fmt.Sprintf("gap_up %.4f above band %.4f: chasing risk", gap, upper))
		return ev
	}
	if gap < lower && model.Defined(in.MA20) && q.Price < in.MA20 {
		ev.Action = model.MonitorStop
		ev.Reasons = append(ev.Reasons, fmt.Sprintf("gap_down %.4f below band %.4f with close under ma20: breakdown risk", gap, lower))
		return ev
	}

	// 2. Limit-up: effectively unexecutable.
	if gap*100 >= g.params.LimitUpTriggerPct {
		ev.Action = model.MonitorStop
		ev.Reasons = append(ev.Reasons, fmt.Sprintf("limit_up: open gain %.2f%% >= %.2f%%", gap*100, g.params.LimitUpTriggerPct))
		return ev
	}

	// 3. VWAP break, re-applied on every in-session re-evaluation.
	if q.VWAP > 0 && q.Price <= q.VWAP*(1+g.params.VWAPBreakPct) {
		ev.Action = model.MonitorStop
		ev.Reasons = append(ev.Reasons, fmt.Sprintf("vwap_break: price %.4f below vwap threshold %.4f", q.Price, q.VWAP*(1+g.params.VWAPBreakPct)))
		return ev
	}

	// 4. Inside the bands → EXECUTE, otherwise WAIT for a better entry.
	if gap >= lower && gap <= upper {
		ev.Action = model.MonitorExecute
		ev.Reasons = append(ev.Reasons, fmt.Sprintf("gap %.4f within [%.4f, %.4f]", gap, lower, upper))
		return ev
	}
	ev.Action = model.MonitorWait
	ev.Reasons = append(ev.Reasons, fmt.Sprintf("gap %.4f outside [%.4f, %.4f], ma20 holding", gap, lower, upper))
	return ev
}

// gapBands returns the dynamic (upper, lower) gap bounds: a width
// proportional to atr14/prior_close, never wider than the fixed rails.
func (g *Gate) gapBands(in Input) (float64, float64) {
	upper, lower := g.params.MaxGapUpPct, g.params.MaxGapDownPct
	if model.Defined(in.ATR14) && in.ATR14 > 0 && in.PriorClose > 0 {
		atrPct := in.ATR14 / in.PriorClose
		if v := g.params.GapBandUpATR * atrPct; v < upper {
			upper = v
		}
		if v := -g.params.GapBandDownATR * atrPct; v > lower {
			lower = v
		}
	}
	return upper, lower
}

// Expired reports whether a BUY decision's validity window has lapsed by
// evalDate, counting business days between the signal date and the
// evaluation date.
func Expired(d model.Decision, evalDate time.Time) bool {
	if d.ValidDays <= 0 {
		return false
	}
	elapsed := 0
	for day := d.Date.AddDate(0, 0, 1); !day.After(evalDate); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			elapsed++
		}
	}
	return elapsed > d.ValidDays
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func bucket(t time.Time) string {
	return t.Format("15:04")
}
