package model

import (
	"math"
	"time"
)

// IndicatorSnapshot holds all derived indicators for one bar.
// Values that cannot be computed from the available history are NaN,
// never zero; use Defined to test them.
type IndicatorSnapshot struct {
	Symbol    string
	Date      time.Time
	Close     float64
	MA5       float64
	MA20      float64
	MA60      float64
	MA250     float64
	ATR14     float64
	MACDHist  float64
	KDJK      float64
	KDJD      float64
	VolRatio5 float64

	// Complete is true when the full 250-bar feature set is available.
	// Incomplete snapshots are excluded from trend evaluation.
	Complete bool

	// LowConfidence marks a snapshot computed across a gap in the
	// trading-day sequence.
	LowConfidence bool
}

// Defined reports whether an indicator value was computable.
func Defined(v float64) bool { return !math.IsNaN(v) }
