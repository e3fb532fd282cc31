package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"TrendSentinel/internal/feed"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/store"
)

// Runner re-validates recent BUY decisions against live quotes and
// persists one MonitorEval per (symbol, eval bucket).
type Runner struct {
	gate         *Gate
	fetcher      feed.Fetcher
	store        store.Store
	lookbackDays int
}

func NewRunner(gate *Gate, fetcher feed.Fetcher, st store.Store, lookbackDays int) *Runner {
	return &Runner{gate: gate, fetcher: fetcher, store: st, lookbackDays: lookbackDays}
}

// RunOnce evaluates every watched symbol at the given instant. The
// returned evals are sorted by descending gap, mirroring the exported
// watch list. Evaluation of individual symbols never fails the run;
// a missing quote simply yields WAIT.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) ([]model.MonitorEval, error) {
	today := day(now)
	// Calendar span is wider than the session lookback to survive
	// holidays; expiry filtering below is what actually bounds it.
	from := today.AddDate(0, 0, -r.lookbackDays*2)
	recs, err := r.store.BuyDecisions(ctx, from, today)
	if err != nil {
		return nil, fmt.Errorf("load buy decisions: %w", err)
	}

	watch := make([]store.DecisionRecord, 0, len(recs))
	for _, rec := range recs {
		if !rec.Decision.Date.Before(today) {
			continue // same-session decisions are not re-validated
		}
		if Expired(rec.Decision, today) {
			log.Debug().
				Str("symbol", rec.Decision.Symbol).
				Str("signal_date", rec.Decision.Date.Format(model.DateLayout)).
				Msg("buy decision expired")
			continue
		}
		watch = append(watch, rec)
	}
	if len(watch) == 0 {
		return nil, nil
	}

	symbols := make([]string, 0, len(watch))
	for _, rec := range watch {
		symbols = append(symbols, rec.Decision.Symbol)
	}
	quotes, err := r.fetcher.Quotes(ctx, symbols)
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues("quotes").Inc()
		log.Warn().Err(err).Msg("quote fetch failed, all symbols evaluate as WAIT")
		quotes = nil
	}

	evals := make([]model.MonitorEval, 0, len(watch))
	for _, rec := range watch {
		in := Input{
			Decision:   rec.Decision,
			PriorClose: rec.PriorClose,
			MA20:       rec.MA20,
			ATR14:      rec.ATR14,
			EvalAt:     now,
		}
		if q, ok := quotes[rec.Decision.Symbol]; ok {
			in.Quote = &q
		}
		ev := r.gate.Evaluate(in)
		metrics.MonitorEvalsTotal.WithLabelValues(string(ev.Action)).Inc()
		if err := r.store.SaveMonitorEval(ctx, ev); err != nil {
			return nil, fmt.Errorf("save monitor eval %s: %w", ev.Symbol, err)
		}
		evals = append(evals, ev)
	}

	sort.SliceStable(evals, func(i, j int) bool { return evals[i].GapPct > evals[j].GapPct })
	log.Info().
		Int("watched", len(watch)).
		Str("bucket", bucket(now)).
		Msg("monitor pass complete")
	return evals, nil
}
