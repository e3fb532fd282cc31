package pipeline

import (
	"context"
	"testing"
	"time"

	"TrendSentinel/internal/config"
	"TrendSentinel/internal/feed"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/store"
)

func testConfig(symbols ...string) *config.Config {
	cfg := &config.Config{}
	cfg.DataSource.Symbols = symbols
	cfg.DataSource.Benchmark = "sh.000300"
	cfg.DataSource.LookbackDays = 300
	cfg.Strategy.VolumeRatioThreshold = 1.5
	cfg.Strategy.PullbackBandATRMult = 0.6
	cfg.Strategy.PullbackVolMax = 1.1
	cfg.Strategy.RelativeStrengthBonus = 0.5
	cfg.Strategy.RelativeStrengthWindow = 5
	cfg.Strategy.ValidDays = 3
	cfg.Monitor.LookbackDays = 5
	cfg.Workers = 2
	return cfg
}

func TestRunScan_DecidesEverySymbol(t *testing.T) {
	cfg := testConfig("sh.600519", "sz.000858", "sh.601899")
	p := New(cfg, &feed.MockFetcher{}, store.NewNoopStore())

	recs, err := p.RunScan(context.Background())
	if err != nil {
		t.Fatalf("run scan: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(recs))
	}
	for _, rec := range recs {
		d := rec.Decision
		if d.Action == "" {
			t.Errorf("%s: empty action", d.Symbol)
		}
		if len(d.Reasons) == 0 {
			t.Errorf("%s: decision must record its reasons", d.Symbol)
		}
		if rec.PriorClose <= 0 {
			t.Errorf("%s: prior close not captured", d.Symbol)
		}
	}
}

func TestRunScan_RiskFlagStopsSymbol(t *testing.T) {
	cfg := testConfig("sh.600519")
	cfg.RiskFlags = map[string][]string{"sh.600519": {"special_treatment"}}
	p := New(cfg, &feed.MockFetcher{}, store.NewNoopStore())

	recs, err := p.RunScan(context.Background())
	if err != nil {
		t.Fatalf("run scan: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(recs))
	}
	if recs[0].Decision.Action != model.ActionStop {
		t.Errorf("flagged symbol must STOP, got %s (%v)", recs[0].Decision.Action, recs[0].Decision.Reasons)
	}
}

// buyStore serves a fixed set of BUY decisions.
type buyStore struct {
	store.NoopStore
	buys []store.DecisionRecord
}

func (s *buyStore) BuyDecisions(context.Context, time.Time, time.Time) ([]store.DecisionRecord, error) {
	return s.buys, nil
}

func TestHeldSymbols_IgnoresExpiredBuys(t *testing.T) {
	today := time.Now().Truncate(24 * time.Hour)
	st := &buyStore{buys: []store.DecisionRecord{
		{Decision: model.Decision{
			Symbol: "sh.600519", Date: today.AddDate(0, 0, -1),
			Action: model.ActionBuy, ValidDays: 3,
		}},
		{Decision: model.Decision{
			Symbol: "sz.000858", Date: today.AddDate(0, 0, -14),
			Action: model.ActionBuy, ValidDays: 3,
		}},
	}}
	p := New(testConfig("sh.600519", "sz.000858"), &feed.MockFetcher{}, st)

	held, err := p.heldSymbols(context.Background())
	if err != nil {
		t.Fatalf("held symbols: %v", err)
	}
	if !held["sh.600519"] {
		t.Error("a BUY inside its validity window must count as held")
	}
	if held["sz.000858"] {
		t.Error("an expired BUY must not count as held")
	}
}

func TestRunScan_SkipsFailingSymbols(t *testing.T) {
	cfg := testConfig("sh.600519")
	fetcher := &feed.MockFetcher{Err: context.DeadlineExceeded}
	p := New(cfg, fetcher, store.NewNoopStore())

	recs, err := p.RunScan(context.Background())
	if err != nil {
		t.Fatalf("a failing symbol must not fail the scan: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no decisions, got %d", len(recs))
	}
}
