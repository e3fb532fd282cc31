package strategy

import (
	"fmt"
	"math"
	"sort"

	"TrendSentinel/internal/model"
)

// Params holds the trend detector thresholds.
type Params struct {
	VolumeRatioThreshold float64 // golden cross volume confirmation, default 1.5
	PullbackBandATRMult  float64 // tolerance band as a multiple of atr14, default 0.6
	PullbackVolMax       float64 // pullback-day volume vs 5-day average, default 1.1
	RSBonus              float64 // score bonus for persistent outperformance
	RSWindow             int     // outperformance window in sessions, default 5
	WBottomLookback      int     // bars scanned for a double trough, default 40
}

// DefaultParams mirrors the configured defaults.
func DefaultParams() Params {
	return Params{
		VolumeRatioThreshold: 1.5,
		PullbackBandATRMult:  0.6,
		PullbackVolMax:       1.1,
		RSBonus:              0.5,
		RSWindow:             5,
		WBottomLookback:      40,
	}
}

// Detector evaluates trend conditions per (symbol, date) and produces
// BUY/SELL candidates.
type Detector struct {
	params Params
}

func NewDetector(p Params) *Detector { return &Detector{params: p} }

// Base trigger strengths. Ties between equal final scores fall back to
// Trigger.Priority.
var triggerStrength = map[model.Trigger]float64{
	model.TriggerGoldenCross: 1.0,
	model.TriggerPullback:    0.8,
	model.TriggerWBottom:     0.7,
	model.TriggerMACDTurn:    0.6,
	model.TriggerDeadCross:   1.0,
	model.TriggerMA20Break:   0.8,
}

// Detect returns the candidates for bar index i of the snapshot series.
// At most one candidate per trigger kind is emitted. benchCloses may be
// nil when no benchmark history is available.
func (d *Detector) Detect(snaps []model.IndicatorSnapshot, bars []model.Bar, i int, benchCloses []float64) []model.TrendSignal {
	if i <= 0 || i >= len(snaps) || len(snaps) != len(bars) {
		return nil
	}
	cur, prev := snaps[i], snaps[i-1]

	// ma250 undefined: the snapshot is incomplete and trend evaluation
	// for this date is suppressed entirely.
	if !cur.Complete {
		return nil
	}

	var out []model.TrendSignal
	rsBonus := 0.0
	if d.outperforms(bars, i, benchCloses) {
		rsBonus = d.params.RSBonus
	}

	emit := func(kind model.SignalKind, trigger model.Trigger, note string) {
		score := triggerStrength[trigger]
		if kind == model.SignalBuy {
			score += rsBonus
		}
		out = append(out, model.TrendSignal{
			Symbol:  cur.Symbol,
			Date:    cur.Date,
			Kind:    kind,
			Trigger: trigger,
			Score:   score,
			Note:    note,
		})
	}

	band := d.params.PullbackBandATRMult * cur.ATR14
	macdRising := model.Defined(cur.MACDHist) && model.Defined(prev.MACDHist) && cur.MACDHist > prev.MACDHist

	// BUY candidates require the trend filter: close > ma60 > ma250 and
	// ma20 > ma60 > ma250, all defined.
	if d.trendFilterOK(cur) {
		crossUp := model.Defined(prev.MA5) && model.Defined(prev.MA20) &&
			prev.MA5 <= prev.MA20 && cur.MA5 > cur.MA20

		if crossUp && model.Defined(band) && math.Abs(cur.MA5-cur.MA20) < band &&
			model.Defined(cur.VolRatio5) && cur.VolRatio5 >= d.params.VolumeRatioThreshold &&
			macdRising {
			emit(model.SignalBuy, model.TriggerGoldenCross,
				fmt.Sprintf("ma5 crossed ma20, vol_ratio=%.2f", cur.VolRatio5))
		}

		pullbackToMA20 := model.Defined(band) && math.Abs(cur.Close-cur.MA20) <= band
		ma5Rising := model.Defined(prev.MA5) && cur.MA5 > prev.MA5
		supplyExhausted := model.Defined(cur.VolRatio5) && cur.VolRatio5 < d.params.PullbackVolMax
		if pullbackToMA20 && ma5Rising && supplyExhausted && macdRising {
			emit(model.SignalBuy, model.TriggerPullback,
				fmt.Sprintf("retrace to ma20 on dry volume (vol_ratio=%.2f)", cur.VolRatio5))
		}

		if model.Defined(prev.MACDHist) && model.Defined(cur.MACDHist) &&
			prev.MACDHist < 0 && cur.MACDHist > 0 {
			emit(model.SignalBuy, model.TriggerMACDTurn, "macd_hist turned positive")
		}

		if peak, ok := detectWBottom(bars, i, cur.ATR14, d.params.WBottomLookback); ok {
			emit(model.SignalBuy, model.TriggerWBottom,
				fmt.Sprintf("double trough broke neckline %.2f", peak))
		}
	}

	// SELL candidates are not gated by the trend filter.
	crossDown := model.Defined(prev.MA5) && model.Defined(prev.MA20) &&
		model.Defined(cur.MA5) && model.Defined(cur.MA20) &&
		prev.MA5 >= prev.MA20 && cur.MA5 < cur.MA20
	if crossDown {
		emit(model.SignalSell, model.TriggerDeadCross, "ma5 crossed below ma20")
	}

	brokeMA20 := model.Defined(cur.MA20) && model.Defined(prev.MA20) &&
		cur.Close < cur.MA20 && prev.Close >= prev.MA20 &&
		model.Defined(cur.VolRatio5) && cur.VolRatio5 >= d.params.VolumeRatioThreshold
	if brokeMA20 {
		emit(model.SignalSell, model.TriggerMA20Break,
			fmt.Sprintf("close broke ma20 on vol_ratio=%.2f", cur.VolRatio5))
	}

	if model.Defined(prev.MACDHist) && model.Defined(cur.MACDHist) &&
		prev.MACDHist > 0 && cur.MACDHist < 0 {
		emit(model.SignalSell, model.TriggerMACDTurn, "macd_hist turned negative")
	}

	Sort(out)
	return out
}

func (d *Detector) trendFilterOK(s model.IndicatorSnapshot) bool {
	if !model.Defined(s.MA20) || !model.Defined(s.MA60) || !model.Defined(s.MA250) {
		return false
	}
	return s.Close > s.MA60 && s.MA60 > s.MA250 && s.MA20 > s.MA60
}

// outperforms reports persistent outperformance vs the benchmark: the
// symbol's daily return beats the benchmark's on every one of the last
// RSWindow sessions.
func (d *Detector) outperforms(bars []model.Bar, i int, benchCloses []float64) bool {
	w := d.params.RSWindow
	if w <= 0 || d.params.RSBonus == 0 {
		return false
	}
	if i < w || len(benchCloses) < w+1 {
		return false
	}
	// Align the benchmark tail to the symbol's as-of bar.
	bn := len(benchCloses)
	for k := 0; k < w; k++ {
		sPrev, sCur := bars[i-k-1].Close, bars[i-k].Close
		bPrev, bCur := benchCloses[bn-k-2], benchCloses[bn-k-1]
		if sPrev <= 0 || bPrev <= 0 {
			return false
		}
		if (sCur-sPrev)/sPrev <= (bCur-bPrev)/bPrev {
			return false
		}
	}
	return true
}

// Sort orders candidates by descending score, breaking ties with the
// fixed trigger priority.
func Sort(signals []model.TrendSignal) {
	sort.SliceStable(signals, func(a, b int) bool {
		if signals[a].Score != signals[b].Score {
			return signals[a].Score > signals[b].Score
		}
		return signals[a].Trigger.Priority() < signals[b].Trigger.Priority()
	})
}
