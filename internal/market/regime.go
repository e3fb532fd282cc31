// Package market classifies the broad-market regime from benchmark
// index bars. The arbitrator consumes the result: RISK_OFF downgrades
// buy candidates to HOLD.
package market

import (
	"fmt"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Params holds the regime thresholds.
type Params struct {
	FastWindow  int     // benchmark MA posture, fast leg
	SlowWindow  int     // benchmark MA posture, slow leg
	RSIPeriod   int
	RSIFloor    float64 // benchmark RSI at or below this is risk-off
	MinHistoryN int     // bars required before a verdict
}

func DefaultParams() Params {
	return Params{
		FastWindow:  20,
		SlowWindow:  60,
		RSIPeriod:   14,
		RSIFloor:    40,
		MinHistoryN: 80,
	}
}

// Classifier turns benchmark history into a Regime verdict.
type Classifier struct {
	params Params
}

func NewClassifier(p Params) *Classifier { return &Classifier{params: p} }

// Classify returns the regime as of the last bar. The benchmark is
// risk-off when its close sits under a falling fast MA that is itself
// under the slow MA, or when benchmark RSI is washed out. Insufficient
// history defaults to RISK_ON so a short benchmark feed never silently
// suppresses the whole universe.
func (c *Classifier) Classify(bars []model.Bar) (model.Regime, error) {
	p := c.params
	if len(bars) < p.MinHistoryN {
		return model.RegimeRiskOn, fmt.Errorf("benchmark history %d bars, need %d", len(bars), p.MinHistoryN)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	fast, err := calculator.SMASeries(closes, p.FastWindow)
	if err != nil {
		return model.RegimeRiskOn, err
	}
	slow, err := calculator.SMASeries(closes, p.SlowWindow)
	if err != nil {
		return model.RegimeRiskOn, err
	}

	i := len(bars) - 1
	cur := closes[i]
	fastNow, slowNow := fast[i], slow[i]
	if !model.Defined(fastNow) || !model.Defined(slowNow) {
		return model.RegimeRiskOn, nil
	}
	fastFalling := model.Defined(fast[i-1]) && fastNow < fast[i-1]

	if cur < fastNow && fastFalling && fastNow < slowNow {
		return model.RegimeRiskOff, nil
	}

	rsi, err := calculator.RSI(bars, p.RSIPeriod)
	if err != nil {
		return model.RegimeRiskOn, err
	}
	if rsi <= p.RSIFloor && cur < slowNow {
		return model.RegimeRiskOff, nil
	}
	return model.RegimeRiskOn, nil
}
