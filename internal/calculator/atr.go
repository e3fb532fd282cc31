package calculator

import (
	"errors"
	"math"

	"TrendSentinel/internal/model"
)

// TrueRangeSeries computes the per-bar true range:
// max(high-low, |high-prev_close|, |low-prev_close|).
// The first bar has no previous close and uses high-low.
func TrueRangeSeries(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// ATRSeries computes the rolling mean of the true range over the given
// period. Positions with insufficient history are NaN.
func ATRSeries(bars []model.Bar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	tr := TrueRangeSeries(bars)
	return SMASeries(tr, period)
}
