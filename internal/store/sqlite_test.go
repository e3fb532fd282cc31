package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var tradeDate = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func TestDecisionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := DecisionRecord{
		Decision: model.Decision{
			Symbol:    "sh.600519",
			Date:      tradeDate,
			Action:    model.ActionBuy,
			Reasons:   []string{"trend_signal: golden_cross score=1.00"},
			SignalIDs: []string{"sh.600519/2025-06-10/golden_cross"},
			Score:     1.0,
			ValidDays: 3,
		},
		PriorClose: 10.5,
		MA20:       10.2,
		ATR14:      0.2,
	}
	require.NoError(t, s.SaveDecision(ctx, rec))

	got, err := s.BuyDecisions(ctx, tradeDate.AddDate(0, 0, -5), tradeDate)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.Decision.Symbol, got[0].Decision.Symbol)
	assert.True(t, got[0].Decision.Date.Equal(tradeDate))
	assert.Equal(t, rec.Decision.Reasons, got[0].Decision.Reasons)
	assert.Equal(t, rec.Decision.SignalIDs, got[0].Decision.SignalIDs)
	assert.Equal(t, 3, got[0].Decision.ValidDays)
	assert.Equal(t, 10.5, got[0].PriorClose)
	assert.Equal(t, 10.2, got[0].MA20)
	assert.Equal(t, 0.2, got[0].ATR14)
}

func TestSaveDecision_UpsertReplacesByKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := DecisionRecord{
		Decision: model.Decision{
			Symbol: "sh.600519", Date: tradeDate, Action: model.ActionBuy,
			Reasons: []string{"a"}, ValidDays: 3,
		},
		PriorClose: 10.0,
	}
	require.NoError(t, s.SaveDecision(ctx, rec))

	rec.Decision.Action = model.ActionBuy
	rec.Decision.Reasons = []string{"b"}
	rec.PriorClose = 10.5
	require.NoError(t, s.SaveDecision(ctx, rec))

	got, err := s.BuyDecisions(ctx, tradeDate, tradeDate)
	require.NoError(t, err)
	require.Len(t, got, 1, "re-saving the same (symbol, date) must not duplicate")
	assert.Equal(t, []string{"b"}, got[0].Decision.Reasons)
	assert.Equal(t, 10.5, got[0].PriorClose)
}

func TestBuyDecisions_FiltersActionAndRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDecision(ctx, DecisionRecord{Decision: model.Decision{
		Symbol: "sh.600519", Date: tradeDate, Action: model.ActionHold, Reasons: []string{"no_signal"},
	}}))
	require.NoError(t, s.SaveDecision(ctx, DecisionRecord{Decision: model.Decision{
		Symbol: "sz.000858", Date: tradeDate.AddDate(0, 0, -10), Action: model.ActionBuy, Reasons: []string{"x"},
	}}))

	got, err := s.BuyDecisions(ctx, tradeDate.AddDate(0, 0, -5), tradeDate)
	require.NoError(t, err)
	assert.Empty(t, got, "HOLDs and out-of-range BUYs must be excluded")
}

func TestSignalsAndPhaseStates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sig := model.TrendSignal{
		Symbol: "sh.600519", Date: tradeDate,
		Kind: model.SignalBuy, Trigger: model.TriggerGoldenCross, Score: 1.0, Note: "n",
	}
	require.NoError(t, s.SaveSignals(ctx, []model.TrendSignal{sig}))
	sig.Score = 1.5
	require.NoError(t, s.SaveSignals(ctx, []model.TrendSignal{sig}), "upsert must tolerate re-runs")

	st := model.PhaseState{
		Symbol: "sh.600519", AsOfDate: tradeDate,
		Phase: model.PhaseAccumulation, LastEvent: model.EventSOS, Divergence: true,
	}
	require.NoError(t, s.SavePhaseState(ctx, st))
	st.Phase = model.PhaseDistribution
	st.LastEvent = model.EventSOW
	require.NoError(t, s.SavePhaseState(ctx, st))

	states, err := s.PhaseStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, model.PhaseDistribution, states[0].Phase)
	assert.Equal(t, model.EventSOW, states[0].LastEvent)
	assert.True(t, states[0].Divergence)
	assert.True(t, states[0].AsOfDate.Equal(tradeDate))
}

func TestMonitorEvalRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := model.MonitorEval{
		Symbol:     "sh.600519",
		EvalDate:   tradeDate,
		EvalTime:   "09:30",
		Action:     model.MonitorExecute,
		GapPct:     0.01,
		VWAPDevPct: 0.002,
		Reasons:    []string{"gap 0.0100 within [-0.0300, 0.0400]"},
		SignalDate: tradeDate.AddDate(0, 0, -1),
	}
	require.NoError(t, s.SaveMonitorEval(ctx, ev))

	// A later poll in the same session replaces the day's record rather
	// than adding a row per bucket.
	ev.EvalTime = "09:35"
	ev.Action = model.MonitorStop
	ev.Reasons = []string{"vwap_break"}
	require.NoError(t, s.SaveMonitorEval(ctx, ev))

	got, err := s.MonitorEvals(ctx, tradeDate)
	require.NoError(t, err)
	require.Len(t, got, 1, "one logical record per (symbol, eval_date)")
	assert.Equal(t, model.MonitorStop, got[0].Action)
	assert.Equal(t, []string{"vwap_break"}, got[0].Reasons)
	assert.Equal(t, "09:35", got[0].EvalTime)
	assert.True(t, got[0].SignalDate.Equal(tradeDate.AddDate(0, 0, -1)))
}
