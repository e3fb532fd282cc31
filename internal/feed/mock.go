package feed

import (
	"context"
	"time"

	"TrendSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars     map[string][]model.Bar
	QuoteMap map[string]model.Quote
	Err      error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) DailyBars(_ context.Context, symbol string, days int) ([]model.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		if len(bars) > days {
			bars = bars[len(bars)-days:]
		}
		return bars, nil
	}
	return GenerateBars(symbol, 100.0, days), nil
}

func (m *MockFetcher) Quotes(_ context.Context, symbols []string) (map[string]model.Quote, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]model.Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := m.QuoteMap[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

// GenerateBars builds a gently trending synthetic history ending today,
// weekends skipped.
func GenerateBars(symbol string, basePrice float64, count int) []model.Bar {
	bars := make([]model.Bar, 0, count)
	day := time.Now().Truncate(24 * time.Hour)
	dates := make([]time.Time, 0, count)
	for len(dates) < count {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, day)
		}
		day = day.AddDate(0, 0, -1)
	}
	for i := count - 1; i >= 0; i-- {
		p := basePrice * (1 + float64((count-1-i)-count/2)*0.001)
		bars = append(bars, model.Bar{
			Symbol: symbol,
			Date:   dates[i],
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1_000_000,
		})
	}
	return bars
}
