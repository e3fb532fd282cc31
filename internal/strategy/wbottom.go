package strategy

import (
	"math"

	"TrendSentinel/internal/model"
)

// detectWBottom looks for a local double-trough pattern inside the
// lookback window that breaks above the intervening peak on bar i.
// Returns the neckline (intervening peak high) when the breakout happens
// exactly on bar i.
func detectWBottom(bars []model.Bar, i int, atr float64, lookback int) (float64, bool) {
	if !model.Defined(atr) || atr <= 0 || lookback < 10 {
		return 0, false
	}
	start := i - lookback
	if start < 0 {
		start = 0
	}
	// Pattern bars exclude the breakout bar itself.
	window := bars[start:i]
	if len(window) < 10 {
		return 0, false
	}

	troughs := localTroughs(window)
	if len(troughs) < 2 {
		return 0, false
	}

	// Take the last two troughs at least 5 bars apart with lows within
	// one ATR of each other.
	for a := len(troughs) - 2; a >= 0; a-- {
		t1 := troughs[a]
		t2 := troughs[len(troughs)-1]
		if t2-t1 < 5 {
			continue
		}
		if math.Abs(window[t1].Low-window[t2].Low) > atr {
			continue
		}
		peak := math.Inf(-1)
		for j := t1 + 1; j < t2; j++ {
			peak = math.Max(peak, window[j].High)
		}
		if math.IsInf(peak, -1) {
			continue
		}
		// Breakout: today's close above the neckline, yesterday's not.
		if bars[i].Close > peak && bars[i-1].Close <= peak {
			return peak, true
		}
		return 0, false
	}
	return 0, false
}

// localTroughs returns indices of bars whose low undercuts both
// neighbors within a 2-bar radius.
func localTroughs(window []model.Bar) []int {
	var out []int
	for j := 2; j < len(window)-2; j++ {
		low := window[j].Low
		if low <= window[j-1].Low && low <= window[j-2].Low &&
			low < window[j+1].Low && low < window[j+2].Low {
			out = append(out, j)
		}
	}
	return out
}
