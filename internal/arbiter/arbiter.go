// Package arbiter merges trend candidates, the phase verdict, and
// auxiliary risk flags into one final daily Decision. Resolution is an
// explicit rule chain evaluated in fixed order; the first terminal
// verdict wins and every fired rule is recorded in order.
package arbiter

import (
	"fmt"
	"time"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/phase"
)

// Input is everything the arbitrator sees for one (symbol, date).
type Input struct {
	Symbol       string
	Date         time.Time
	Candidates   []model.TrendSignal // pre-sorted by score/priority
	Phase        model.PhaseState
	PositionHeld bool
	RiskFlags    []model.RiskFlag
	Regime       model.Regime
	ValidDays    int // validity carried onto BUY decisions
}

// ruleResult is a single rule's opinion: a terminal action, a recorded
// reason, or neither.
type ruleResult struct {
	action   model.Action
	terminal bool
	reason   string
}

type rule func(in Input) ruleResult

var noOpinion = ruleResult{}

// chain is the fixed evaluation order. Order is the contract: the SOW
// veto outranks everything, fatal risk flags outrank the regime gate,
// and scored candidates come last.
var chain = []rule{
	sowVeto,
	fatalRiskFlags,
	regimeGate,
	bestCandidate,
}

// Arbitrate produces the Decision for one (symbol, date). It is pure:
// identical inputs yield an identical Decision.
func Arbitrate(in Input) model.Decision {
	d := model.Decision{
		Symbol: in.Symbol,
		Date:   in.Date,
		Action: model.ActionHold,
	}
	for _, s := range in.Candidates {
		d.SignalIDs = append(d.SignalIDs, s.ID())
	}

	for _, r := range chain {
		res := r(in)
		if res.reason != "" {
			d.Reasons = append(d.Reasons, res.reason)
		}
		if res.terminal {
			d.Action = res.action
			break
		}
	}
	if len(d.Reasons) == 0 {
		d.Reasons = append(d.Reasons, "no_signal")
	}
	if d.Action == model.ActionBuy {
		d.Score = bestOf(in, model.SignalBuy).Score
		d.ValidDays = in.ValidDays
	}
	if d.Action == model.ActionSell && len(in.Candidates) > 0 {
		d.Score = bestOf(in, model.SignalSell).Score
	}
	return d
}

// Rule 1: a SOW event on this date forces SELL (held) or STOP (pending),
// unconditionally. No scoring comparison happens.
func sowVeto(in Input) ruleResult {
	if !in.Phase.AsOfDate.Equal(in.Date) {
		return noOpinion
	}
	action, vetoed := phase.Verdict(in.Phase, in.PositionHeld)
	if !vetoed {
		return noOpinion
	}
	return ruleResult{
		action:   action,
		terminal: true,
		reason:   fmt.Sprintf("sow_veto: sign of weakness in %s phase", in.Phase.Phase),
	}
}

// Rule 2: any fatal per-symbol risk flag stops the symbol regardless of
// trend score.
func fatalRiskFlags(in Input) ruleResult {
	if len(in.RiskFlags) == 0 {
		return noOpinion
	}
	return ruleResult{
		action:   model.ActionStop,
		terminal: true,
		reason:   fmt.Sprintf("risk_flag: %s", in.RiskFlags[0]),
	}
}

// Rule 3: a RISK_OFF regime downgrades a winning BUY to HOLD. SELL
// candidates pass through untouched.
func regimeGate(in Input) ruleResult {
	if in.Regime != model.RegimeRiskOff {
		return noOpinion
	}
	best := bestOf(in, model.SignalBuy)
	if best.Trigger == "" {
		return noOpinion
	}
	// Only terminal when no SELL candidate outranks the suppressed BUY.
	if sell := bestOf(in, model.SignalSell); sell.Trigger != "" {
		return ruleResult{reason: "regime_risk_off: buy candidates suppressed"}
	}
	return ruleResult{
		action:   model.ActionHold,
		terminal: true,
		reason:   "regime_risk_off: buy downgraded to hold",
	}
}

// Rule 4: the highest-scoring surviving candidate decides; none means HOLD.
func bestCandidate(in Input) ruleResult {
	if len(in.Candidates) == 0 {
		return ruleResult{action: model.ActionHold, terminal: true, reason: "no_signal"}
	}
	best := in.Candidates[0]
	if in.Regime == model.RegimeRiskOff && best.Kind == model.SignalBuy {
		// BUYs were suppressed by rule 3; fall back to the best SELL.
		if sell := bestOf(in, model.SignalSell); sell.Trigger != "" {
			best = sell
		} else {
			return ruleResult{action: model.ActionHold, terminal: true, reason: "no_signal"}
		}
	}
	action := model.ActionBuy
	if best.Kind == model.SignalSell {
		action = model.ActionSell
	}
	return ruleResult{
		action:   action,
		terminal: true,
		reason:   fmt.Sprintf("trend_signal: %s score=%.2f", best.Trigger, best.Score),
	}
}

func bestOf(in Input, kind model.SignalKind) model.TrendSignal {
	for _, s := range in.Candidates {
		if s.Kind == kind {
			return s
		}
	}
	return model.TrendSignal{}
}
