package calculator

import (
	"errors"
	"math"

	"TrendSentinel/internal/model"
)

// KDJSeries computes the K and D lines of the KDJ stochastic: a 9-period
// RSV smoothed twice with the usual 1/3 weighting. Both lines start at 50
// and are NaN until a full RSV window is available.
func KDJSeries(bars []model.Bar, rsvPeriod int) (k, d []float64, err error) {
	if rsvPeriod <= 0 {
		return nil, nil, errors.New("rsv period must be positive")
	}
	n := len(bars)
	k = make([]float64, n)
	d = make([]float64, n)

	prevK, prevD := 50.0, 50.0
	for i := 0; i < n; i++ {
		if i < rsvPeriod-1 {
			k[i], d[i] = math.NaN(), math.NaN()
			continue
		}
		hi, lo := math.Inf(-1), math.Inf(1)
		for j := i - rsvPeriod + 1; j <= i; j++ {
			hi = math.Max(hi, bars[j].High)
			lo = math.Min(lo, bars[j].Low)
		}
		rsv := 50.0
		if hi > lo {
			rsv = (bars[i].Close - lo) / (hi - lo) * 100
		}
		prevK = prevK*2/3 + rsv/3
		prevD = prevD*2/3 + prevK/3
		k[i], d[i] = prevK, prevD
	}
	return k, d, nil
}
