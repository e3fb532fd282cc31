// Package phase tracks per-symbol market structure (accumulation vs
// distribution) from price/volume behavior and emits SOS/SPRING/SOW
// events. A SOW event carries absolute veto power over buy candidates.
package phase

import (
	"math"
	"sync"

	"TrendSentinel/internal/model"
)

// Params holds the structure-detection thresholds.
type Params struct {
	StructureWindow    int     // bars forming the trading box
	BoxMinBars         int     // minimum history before events fire
	BreakoutPct        float64 // break distance beyond the box edge
	ReclaimTol         float64 // close-back tolerance around the edge
	VolSpikeMult       float64 // vol_ratio_5d marking expanding volume
	LightVolMax        float64 // vol_ratio_5d ceiling for a spring
	DivergenceLookback int     // bars scanned for price/MACD divergence
}

func DefaultParams() Params {
	return Params{
		StructureWindow:    60,
		BoxMinBars:         30,
		BreakoutPct:        0.01,
		ReclaimTol:         0.003,
		VolSpikeMult:       1.3,
		LightVolMax:        1.0,
		DivergenceLookback: 30,
	}
}

// Machine owns one PhaseState per symbol. States are mutated only in
// date order; out-of-order bars are ignored.
type Machine struct {
	params Params

	mu     sync.Mutex
	states map[string]model.PhaseState
}

func NewMachine(p Params) *Machine {
	return &Machine{params: p, states: make(map[string]model.PhaseState)}
}

// Restore seeds the machine with persisted states, typically at startup.
func (m *Machine) Restore(states []model.PhaseState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range states {
		m.states[st.Symbol] = st
	}
}

// State returns the current state for a symbol, NEUTRAL when unseen.
func (m *Machine) State(symbol string) model.PhaseState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[symbol]; ok {
		return st
	}
	return model.PhaseState{Symbol: symbol, Phase: model.PhaseNeutral, LastEvent: model.EventNone}
}

// Step advances the symbol's state with bar i of the history and returns
// the updated state. Bars at or before the carried as-of date leave the
// state untouched.
func (m *Machine) Step(bars []model.Bar, snaps []model.IndicatorSnapshot, i int) model.PhaseState {
	if i < 0 || i >= len(bars) || len(bars) != len(snaps) {
		return model.PhaseState{Phase: model.PhaseNeutral, LastEvent: model.EventNone}
	}
	bar := bars[i]

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[bar.Symbol]
	if !ok {
		st = model.PhaseState{Symbol: bar.Symbol, Phase: model.PhaseNeutral, LastEvent: model.EventNone}
	}
	if !st.AsOfDate.IsZero() && !bar.Date.After(st.AsOfDate) {
		return st
	}

	event, divergence := m.classify(bars, snaps, i, st)
	st.AsOfDate = bar.Date
	st.LastEvent = event
	if divergence {
		st.Divergence = true
	}

	switch event {
	case model.EventSOS:
		st.Phase = model.PhaseAccumulation
	case model.EventSpring:
		st.Phase = model.PhaseAccumulation
		st.Divergence = false
	case model.EventSOW:
		st.Phase = model.PhaseDistribution
	}

	m.states[bar.Symbol] = st
	return st
}

// classify detects the structural event on bar i, if any.
func (m *Machine) classify(bars []model.Bar, snaps []model.IndicatorSnapshot, i int, st model.PhaseState) (model.PhaseEvent, bool) {
	p := m.params
	if i < p.BoxMinBars {
		return model.EventNone, false
	}

	start := i - p.StructureWindow
	if start < 0 {
		start = 0
	}
	boxHigh, boxLow := math.Inf(-1), math.Inf(1)
	for j := start; j < i; j++ {
		boxHigh = math.Max(boxHigh, bars[j].High)
		boxLow = math.Min(boxLow, bars[j].Low)
	}

	bar := bars[i]
	volRatio := snaps[i].VolRatio5
	volExpanding := model.Defined(volRatio) && volRatio >= p.VolSpikeMult
	volLight := model.Defined(volRatio) && volRatio <= p.LightVolMax

	breakUp := bar.High > boxHigh*(1+p.BreakoutPct)
	heldAbove := bar.Close > boxHigh*(1+p.ReclaimTol)
	breakDown := bar.Low < boxLow*(1-p.BreakoutPct)
	reclaimed := bar.Close >= boxLow*(1-p.ReclaimTol)

	divergence := bearishDivergence(bars, snaps, i, p.DivergenceLookback)

	// SOW: volume breakdown, or bearish divergence at a fresh high, from
	// NEUTRAL or DISTRIBUTION.
	if st.Phase != model.PhaseAccumulation {
		if breakDown && !reclaimed && volExpanding {
			return model.EventSOW, divergence
		}
		if divergence {
			return model.EventSOW, true
		}
	}

	if breakUp && heldAbove && volExpanding && st.Phase != model.PhaseDistribution {
		return model.EventSOS, divergence
	}

	if breakDown && reclaimed && volLight && st.Phase == model.PhaseAccumulation {
		return model.EventSpring, divergence
	}

	return model.EventNone, divergence
}

// bearishDivergence reports a new price high over the lookback whose
// MACD histogram fails to confirm (lower than the window's peak).
func bearishDivergence(bars []model.Bar, snaps []model.IndicatorSnapshot, i, lookback int) bool {
	if lookback <= 0 || i < lookback {
		return false
	}
	cur := snaps[i]
	if !model.Defined(cur.MACDHist) {
		return false
	}
	priceHigh, histPeak := math.Inf(-1), math.Inf(-1)
	for j := i - lookback; j < i; j++ {
		priceHigh = math.Max(priceHigh, bars[j].Close)
		if model.Defined(snaps[j].MACDHist) {
			histPeak = math.Max(histPeak, snaps[j].MACDHist)
		}
	}
	if math.IsInf(histPeak, -1) {
		return false
	}
	return bars[i].Close > priceHigh && cur.MACDHist < histPeak && histPeak > 0
}

// Verdict is the phase machine's override for the day. It is terminal
// only on a SOW event: SELL when a position is assumed held, STOP when
// an entry was pending. No trend score can suppress it.
func Verdict(st model.PhaseState, positionHeld bool) (model.Action, bool) {
	if st.LastEvent != model.EventSOW {
		return "", false
	}
	if positionHeld {
		return model.ActionSell, true
	}
	return model.ActionStop, true
}
