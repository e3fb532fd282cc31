package calculator

import (
	"errors"
	"math"
)

// VolRatioSeries computes volume relative to its rolling mean over the
// trailing window (current bar included). NaN until the window fills or
// when the mean volume is zero (suspended sessions).
func VolRatioSeries(volumes []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	ma, err := SMASeries(volumes, window)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(volumes))
	for i := range volumes {
		if math.IsNaN(ma[i]) || ma[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = volumes[i] / ma[i]
	}
	return out, nil
}
