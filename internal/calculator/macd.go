package calculator

import (
	"errors"
	"math"
)

// MACDHistSeries computes the MACD histogram (DIF minus its signal line)
// with standard 12/26/9 exponential smoothing. The warmup region, where
// the slow EMA and the signal line have not yet seen a full window, is NaN.
func MACDHistSeries(closes []float64, fast, slow, signal int) ([]float64, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, errors.New("periods must be positive")
	}
	if fast >= slow {
		return nil, errors.New("fast period must be shorter than slow period")
	}

	emaFast, err := EMASeries(closes, fast)
	if err != nil {
		return nil, err
	}
	emaSlow, err := EMASeries(closes, slow)
	if err != nil {
		return nil, err
	}

	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea, err := EMASeries(dif, signal)
	if err != nil {
		return nil, err
	}

	warmup := slow + signal - 2
	out := make([]float64, len(closes))
	for i := range closes {
		if i < warmup {
			out[i] = math.NaN()
			continue
		}
		out[i] = dif[i] - dea[i]
	}
	return out, nil
}
