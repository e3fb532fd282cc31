package calculator

import (
	"fmt"
	"time"

	"TrendSentinel/internal/model"
)

// Default indicator parameters used across the pipeline.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
	KDJPeriod  = 9
	ATRPeriod  = 14
	VolWindow  = 5
)

// Engine derives one IndicatorSnapshot per bar from an ordered history.
// An optional trading calendar (set of YYYY-MM-DD trading days) sharpens
// gap detection; without it a weekday heuristic is used.
type Engine struct {
	Calendar map[string]bool
}

func NewEngine() *Engine { return &Engine{} }

// Compute returns snapshots in input order. The input must be a single
// symbol's bars, strictly ascending and unique by date.
func (e *Engine) Compute(bars []model.Bar) ([]model.IndicatorSnapshot, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars provided")
	}
	symbol := bars[0].Symbol
	for i := 1; i < len(bars); i++ {
		if bars[i].Symbol != symbol {
			return nil, fmt.Errorf("mixed symbols in bar history: %s vs %s", symbol, bars[i].Symbol)
		}
		if !bars[i].Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("bars out of order for %s at %s", symbol, bars[i].Date.Format(model.DateLayout))
		}
	}

	closes := extractCloses(bars)
	volumes := extractVolumes(bars)

	ma5, err := SMASeries(closes, 5)
	if err != nil {
		return nil, err
	}
	ma20, _ := SMASeries(closes, 20)
	ma60, _ := SMASeries(closes, 60)
	ma250, _ := SMASeries(closes, 250)

	atr14, err := ATRSeries(bars, ATRPeriod)
	if err != nil {
		return nil, err
	}
	macdHist, err := MACDHistSeries(closes, MACDFast, MACDSlow, MACDSignal)
	if err != nil {
		return nil, err
	}
	k, d, err := KDJSeries(bars, KDJPeriod)
	if err != nil {
		return nil, err
	}
	volRatio, err := VolRatioSeries(volumes, VolWindow)
	if err != nil {
		return nil, err
	}

	snaps := make([]model.IndicatorSnapshot, len(bars))
	for i, b := range bars {
		snap := model.IndicatorSnapshot{
			Symbol:    symbol,
			Date:      b.Date,
			Close:     b.Close,
			MA5:       ma5[i],
			MA20:      ma20[i],
			MA60:      ma60[i],
			MA250:     ma250[i],
			ATR14:     atr14[i],
			MACDHist:  macdHist[i],
			KDJK:      k[i],
			KDJD:      d[i],
			VolRatio5: volRatio[i],
		}
		snap.Complete = model.Defined(snap.MA250)
		if i > 0 {
			snap.LowConfidence = e.hasGap(bars[i-1].Date, b.Date)
		}
		snaps[i] = snap
	}
	return snaps, nil
}

// hasGap reports whether at least one trading day is missing between two
// consecutive bars. A missing day never halts computation; the snapshot
// is only flagged so downstream stages can discount it.
func (e *Engine) hasGap(prev, cur time.Time) bool {
	if e.Calendar != nil {
		for day := prev.AddDate(0, 0, 1); day.Before(cur); day = day.AddDate(0, 0, 1) {
			if e.Calendar[day.Format(model.DateLayout)] {
				return true
			}
		}
		return false
	}
	return weekdaysBetween(prev, cur) > 0
}

// weekdaysBetween counts weekdays strictly between two dates.
func weekdaysBetween(a, b time.Time) int {
	n := 0
	for day := a.AddDate(0, 0, 1); day.Before(b); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
