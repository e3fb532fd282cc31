package model

import "time"

// Bar represents a single daily candlestick for one symbol.
// Bars are immutable once stored and unique per (symbol, date).
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote is a live intraday snapshot for one symbol.
type Quote struct {
	Symbol    string
	Price     float64
	DayOpen   float64
	VWAP      float64
	Volume    float64
	Timestamp time.Time
}

// DateLayout is the canonical format for trade dates in keys and storage.
const DateLayout = "2006-01-02"
