// Package pipeline orchestrates the daily scan: bars in, indicators,
// trend candidates, phase step, arbitration, persistence.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"TrendSentinel/internal/arbiter"
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/feed"
	"TrendSentinel/internal/market"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/monitor"
	"TrendSentinel/internal/phase"
	"TrendSentinel/internal/store"
	"TrendSentinel/internal/strategy"
)

// Pipeline runs the end-of-day evaluation for the configured universe.
type Pipeline struct {
	cfg        *config.Config
	fetcher    feed.Fetcher
	engine     *calculator.Engine
	detector   *strategy.Detector
	machine    *phase.Machine
	classifier *market.Classifier
	store      store.Store
	riskFlags  map[string][]model.RiskFlag
}

func New(cfg *config.Config, fetcher feed.Fetcher, st store.Store) *Pipeline {
	flags := make(map[string][]model.RiskFlag, len(cfg.RiskFlags))
	for sym, names := range cfg.RiskFlags {
		for _, n := range names {
			flags[sym] = append(flags[sym], model.RiskFlag(n))
		}
	}
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		engine:  calculator.NewEngine(),
		detector: strategy.NewDetector(strategy.Params{
			VolumeRatioThreshold: cfg.Strategy.VolumeRatioThreshold,
			PullbackBandATRMult:  cfg.Strategy.PullbackBandATRMult,
			PullbackVolMax:       cfg.Strategy.PullbackVolMax,
			RSBonus:              cfg.Strategy.RelativeStrengthBonus,
			RSWindow:             cfg.Strategy.RelativeStrengthWindow,
			WBottomLookback:      40,
		}),
		machine:    phase.NewMachine(phase.DefaultParams()),
		classifier: market.NewClassifier(market.DefaultParams()),
		store:      st,
		riskFlags:  flags,
	}
}

// Restore reloads persisted phase states, typically once at startup.
func (p *Pipeline) Restore(ctx context.Context) error {
	states, err := p.store.PhaseStates(ctx)
	if err != nil {
		return fmt.Errorf("restore phase states: %w", err)
	}
	p.machine.Restore(states)
	log.Info().Int("symbols", len(states)).Msg("phase states restored")
	return nil
}

// RunScan evaluates every configured symbol as of its latest bar and
// returns the decisions. Failures on individual symbols are logged and
// skipped; the scan only fails outright when the benchmark or the
// position lookup fails.
func (p *Pipeline) RunScan(ctx context.Context) ([]store.DecisionRecord, error) {
	started := time.Now()
	defer func() { metrics.ScanDuration.Observe(time.Since(started).Seconds()) }()

	regime, benchCloses := p.classifyRegime(ctx)
	held, err := p.heldSymbols(ctx)
	if err != nil {
		return nil, err
	}

	type result struct {
		rec store.DecisionRecord
		err error
		sym string
	}

	sem := make(chan struct{}, p.cfg.Workers)
	results := make(chan result, len(p.cfg.DataSource.Symbols))
	var wg sync.WaitGroup
	for _, sym := range p.cfg.DataSource.Symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			rec, err := p.evaluateSymbol(ctx, sym, regime, benchCloses, held[sym])
			results <- result{rec: rec, err: err, sym: sym}
		}(sym)
	}
	wg.Wait()
	close(results)

	var out []store.DecisionRecord
	for r := range results {
		if r.err != nil {
			log.Warn().Err(r.err).Str("symbol", r.sym).Msg("symbol evaluation skipped")
			continue
		}
		out = append(out, r.rec)
	}
	log.Info().
		Int("decided", len(out)).
		Int("universe", len(p.cfg.DataSource.Symbols)).
		Str("regime", string(regime)).
		Dur("elapsed", time.Since(started)).
		Msg("scan complete")
	return out, nil
}

// classifyRegime fetches benchmark history and classifies the market.
// Benchmark trouble degrades to RISK_ON with a warning rather than
// blocking the scan.
func (p *Pipeline) classifyRegime(ctx context.Context) (model.Regime, []float64) {
	bench := p.cfg.DataSource.Benchmark
	bars, err := p.fetcher.DailyBars(ctx, bench, p.cfg.DataSource.LookbackDays)
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues("benchmark_bars").Inc()
		log.Warn().Err(err).Str("benchmark", bench).Msg("benchmark fetch failed, assuming RISK_ON")
		return model.RegimeRiskOn, nil
	}
	regime, err := p.classifier.Classify(bars)
	if err != nil {
		log.Warn().Err(err).Str("benchmark", bench).Msg("regime classification degraded")
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return regime, closes
}

// heldSymbols treats a recent unexpired BUY decision as an open
// position for SOW verdict purposes. Expired BUYs do not count: their
// entry window closed, so a SOW should STOP rather than SELL.
func (p *Pipeline) heldSymbols(ctx context.Context) (map[string]bool, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := today.AddDate(0, 0, -p.cfg.Monitor.LookbackDays*2)
	recs, err := p.store.BuyDecisions(ctx, from, today)
	if err != nil {
		return nil, fmt.Errorf("load open positions: %w", err)
	}
	held := make(map[string]bool, len(recs))
	for _, r := range recs {
		if monitor.Expired(r.Decision, today) {
			continue
		}
		held[r.Decision.Symbol] = true
	}
	return held, nil
}

func (p *Pipeline) evaluateSymbol(ctx context.Context, sym string, regime model.Regime, benchCloses []float64, positionHeld bool) (store.DecisionRecord, error) {
	bars, err := p.fetcher.DailyBars(ctx, sym, p.cfg.DataSource.LookbackDays)
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues("daily_bars").Inc()
		return store.DecisionRecord{}, fmt.Errorf("fetch bars: %w", err)
	}
	snaps, err := p.engine.Compute(bars)
	if err != nil {
		return store.DecisionRecord{}, fmt.Errorf("compute indicators: %w", err)
	}

	i := len(bars) - 1
	if !snaps[i].Complete {
		// Not an error: the symbol simply has too little history for
		// the full feature set today.
		log.Debug().Str("symbol", sym).Int("bars", len(bars)).Msg("incomplete snapshot, trend evaluation skipped")
	}
	candidates := p.detector.Detect(snaps, bars, i, benchCloses)
	for _, c := range candidates {
		metrics.SignalsTotal.WithLabelValues(string(c.Trigger)).Inc()
	}

	// The machine skips bars at or before its carried as-of date, so
	// replaying the full history each scan is idempotent.
	var st model.PhaseState
	for j := range bars {
		st = p.machine.Step(bars, snaps, j)
	}

	decision := arbiter.Arbitrate(arbiter.Input{
		Symbol:       sym,
		Date:         bars[i].Date,
		Candidates:   candidates,
		Phase:        st,
		PositionHeld: positionHeld,
		RiskFlags:    p.riskFlags[sym],
		Regime:       regime,
		ValidDays:    p.cfg.Strategy.ValidDays,
	})
	metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()

	rec := store.DecisionRecord{
		Decision:   decision,
		PriorClose: bars[i].Close,
		MA20:       snaps[i].MA20,
		ATR14:      snaps[i].ATR14,
	}
	if err := p.persist(ctx, rec, candidates, st); err != nil {
		return store.DecisionRecord{}, err
	}

	log.Debug().
		Str("symbol", sym).
		Str("action", string(decision.Action)).
		Strs("reasons", decision.Reasons).
		Bool("low_confidence", snaps[i].LowConfidence).
		Msg("symbol evaluated")
	return rec, nil
}

func (p *Pipeline) persist(ctx context.Context, rec store.DecisionRecord, candidates []model.TrendSignal, st model.PhaseState) error {
	if err := p.store.SaveSignals(ctx, candidates); err != nil {
		return fmt.Errorf("save signals: %w", err)
	}
	if err := p.store.SaveDecision(ctx, rec); err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	if err := p.store.SavePhaseState(ctx, st); err != nil {
		return fmt.Errorf("save phase state: %w", err)
	}
	return nil
}
