// Package feed retrieves daily bars and live quotes from the upstream
// market-data API.
package feed

import (
	"context"

	"TrendSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// DailyBars returns up to days forward-adjusted daily bars for one
	// symbol, oldest first.
	DailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error)
	// Quotes returns the latest snapshot quote for each symbol. Symbols
	// the upstream knows nothing about are absent from the result.
	Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, error)
	Name() string
}
