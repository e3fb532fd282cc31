package strategy

import (
	"testing"
	"time"

	"TrendSentinel/internal/model"
)

var testDate = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

// uptrendSnap is a complete snapshot satisfying the trend filter:
// close > ma60 > ma250 and ma20 > ma60.
func uptrendSnap() model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Symbol:    "sh.600519",
		Date:      testDate,
		Close:     10.5,
		MA5:       10.25,
		MA20:      10.2,
		MA60:      10.0,
		MA250:     9.0,
		ATR14:     0.2,
		MACDHist:  0.05,
		KDJK:      60,
		KDJD:      55,
		VolRatio5: 1.8,
		Complete:  true,
	}
}

func flatBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Symbol: "sh.600519",
			Date:   testDate.AddDate(0, 0, i-n+1),
			Open:   10.4, High: 10.6, Low: 10.3, Close: 10.5,
			Volume: 1_000_000,
		}
	}
	return bars
}

func TestDetect_GoldenCross(t *testing.T) {
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.MA5 = 10.15 // at or below ma20 yesterday
	prev.MACDHist = 0.01

	cur := uptrendSnap() // ma5 10.25 > ma20 10.2, |diff|=0.05 < 0.6*0.2

	snaps := []model.IndicatorSnapshot{prev, cur}
	bars := flatBars(2)

	got := NewDetector(DefaultParams()).Detect(snaps, bars, 1, nil)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d: %+v", len(got), got)
	}
	sig := got[0]
	if sig.Kind != model.SignalBuy || sig.Trigger != model.TriggerGoldenCross {
		t.Errorf("expected BUY/golden_cross, got %s/%s", sig.Kind, sig.Trigger)
	}
	if sig.Score != 1.0 {
		t.Errorf("expected base score 1.0, got %v", sig.Score)
	}
}

func TestDetect_GoldenCrossNeedsVolume(t *testing.T) {
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.MA5 = 10.15
	prev.MACDHist = 0.01

	cur := uptrendSnap()
	cur.VolRatio5 = 1.2 // below the 1.5 confirmation threshold

	got := NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, flatBars(2), 1, nil)
	for _, s := range got {
		if s.Trigger == model.TriggerGoldenCross {
			t.Error("golden cross should require volume confirmation")
		}
	}
}

func TestDetect_PullbackOnDryVolume(t *testing.T) {
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.MA5 = 10.22 // above ma20 all along: no cross
	prev.MACDHist = 0.01

	cur := uptrendSnap()
	cur.Close = 10.25    // |close-ma20| = 0.05 <= 0.6*0.2
	cur.VolRatio5 = 0.9  // supply dried up
	cur.MA5 = 10.25      // rising vs 10.22

	got := NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, flatBars(2), 1, nil)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d: %+v", len(got), got)
	}
	if got[0].Kind != model.SignalBuy || got[0].Trigger != model.TriggerPullback {
		t.Errorf("expected BUY/pullback, got %s/%s", got[0].Kind, got[0].Trigger)
	}
}

func TestDetect_PullbackNeedsDryVolume(t *testing.T) {
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.MA5 = 10.22
	prev.MACDHist = 0.01

	cur := uptrendSnap()
	cur.Close = 10.25
	cur.VolRatio5 = 1.3 // heavy retrace: supply not exhausted

	got := NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, flatBars(2), 1, nil)
	for _, s := range got {
		if s.Trigger == model.TriggerPullback {
			t.Error("pullback on heavy volume should not fire")
		}
	}
}

func TestDetect_MACDTurnBuy(t *testing.T) {
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.MA5 = 10.22
	prev.MACDHist = -0.02 // histogram flips sign today

	cur := uptrendSnap()
	cur.MACDHist = 0.03
	cur.VolRatio5 = 1.2 // golden cross volume gate closed

	got := NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, flatBars(2), 1, nil)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d: %+v", len(got), got)
	}
	if got[0].Kind != model.SignalBuy || got[0].Trigger != model.TriggerMACDTurn {
		t.Errorf("expected BUY/macd_turn, got %s/%s", got[0].Kind, got[0].Trigger)
	}
}

func TestDetect_WBottomNecklineBreak(t *testing.T) {
	// Two troughs ten bars apart with lows one ATR together, an
	// intervening peak at 10.8, and a close through it on the last bar.
	n := 30
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Symbol: "sh.600519",
			Date:   testDate.AddDate(0, 0, i-n+1),
			Open:   10.4, High: 10.6, Low: 10.0, Close: 10.5,
			Volume: 1_000_000,
		}
	}
	bars[10].Low = 9.5
	bars[20].Low = 9.6
	bars[15].High = 10.8
	bars[n-1].Close = 10.9

	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.MA5 = 10.22
	prev.MACDHist = 0.01

	cur := uptrendSnap()
	cur.Close = 10.9
	cur.VolRatio5 = 1.2

	snaps := make([]model.IndicatorSnapshot, n)
	snaps[n-2] = prev
	snaps[n-1] = cur

	got := NewDetector(DefaultParams()).Detect(snaps, bars, n-1, nil)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d: %+v", len(got), got)
	}
	if got[0].Kind != model.SignalBuy || got[0].Trigger != model.TriggerWBottom {
		t.Errorf("expected BUY/w_bottom, got %s/%s", got[0].Kind, got[0].Trigger)
	}
}

func TestDetect_TrendFilterBlocksBuys(t *testing.T) {
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.MA5 = 10.15
	prev.MACDHist = 0.01

	cur := uptrendSnap()
	cur.Close = 9.8 // below ma60: filter fails

	got := NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, flatBars(2), 1, nil)
	for _, s := range got {
		if s.Kind == model.SignalBuy {
			t.Errorf("buy candidate %s emitted outside a confirmed uptrend", s.Trigger)
		}
	}
}

func TestDetect_IncompleteSnapshotSuppressed(t *testing.T) {
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	cur := uptrendSnap()
	cur.Complete = false

	got := NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, flatBars(2), 1, nil)
	if got != nil {
		t.Errorf("incomplete snapshot must yield no candidates, got %+v", got)
	}
}

func TestDetect_SellNotTrendGated(t *testing.T) {
	// Downtrend: filter fails, but the dead cross must still fire.
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.Close = 9.5
	prev.MA5 = 10.25
	prev.MA20 = 10.2
	prev.MACDHist = -0.01

	cur := uptrendSnap()
	cur.Close = 9.4
	cur.MA5 = 10.1 // crossed below ma20
	cur.MACDHist = -0.05

	got := NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, flatBars(2), 1, nil)
	found := false
	for _, s := range got {
		if s.Kind == model.SignalSell && s.Trigger == model.TriggerDeadCross {
			found = true
		}
		if s.Kind == model.SignalBuy {
			t.Errorf("unexpected buy in a downtrend: %s", s.Trigger)
		}
	}
	if !found {
		t.Error("expected SELL/dead_cross")
	}
}

func TestDetect_MA20BreakNeedsVolume(t *testing.T) {
	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.Close = 10.25 // above ma20 yesterday

	cur := uptrendSnap()
	cur.Close = 10.1 // broke ma20 today
	cur.MA5 = 10.22  // no dead cross
	cur.VolRatio5 = 1.8

	bars := flatBars(2)
	got := NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, bars, 1, nil)
	found := false
	for _, s := range got {
		if s.Trigger == model.TriggerMA20Break {
			found = true
		}
	}
	if !found {
		t.Fatal("expected SELL/ma20_break on heavy volume")
	}

	cur.VolRatio5 = 0.9
	got = NewDetector(DefaultParams()).Detect([]model.IndicatorSnapshot{prev, cur}, bars, 1, nil)
	for _, s := range got {
		if s.Trigger == model.TriggerMA20Break {
			t.Error("ma20 break on light volume should not fire")
		}
	}
}

func TestDetect_RelativeStrengthBonus(t *testing.T) {
	p := DefaultParams()
	p.RSWindow = 2

	prev := uptrendSnap()
	prev.Date = testDate.AddDate(0, 0, -1)
	prev.MA5 = 10.15
	prev.MACDHist = 0.01
	cur := uptrendSnap()

	// Symbol rises 1% a day, benchmark is flat.
	bars := flatBars(3)
	bars[0].Close = 10.0
	bars[1].Close = 10.1
	bars[2].Close = 10.2
	bench := []float64{100, 100, 100}

	snaps := []model.IndicatorSnapshot{{}, prev, cur}
	got := NewDetector(p).Detect(snaps, bars, 2, bench)
	if len(got) == 0 {
		t.Fatal("expected a golden cross candidate")
	}
	if got[0].Score != 1.0+p.RSBonus {
		t.Errorf("expected score %.2f with outperformance bonus, got %v", 1.0+p.RSBonus, got[0].Score)
	}
}

func TestSort_ScoreThenPriority(t *testing.T) {
	signals := []model.TrendSignal{
		{Trigger: model.TriggerMACDTurn, Score: 0.6},
		{Trigger: model.TriggerGoldenCross, Score: 1.0},
		{Trigger: model.TriggerPullback, Score: 1.0},
	}
	Sort(signals)
	if signals[0].Trigger != model.TriggerGoldenCross {
		t.Errorf("equal scores must break ties by priority, got %s first", signals[0].Trigger)
	}
	if signals[2].Trigger != model.TriggerMACDTurn {
		t.Errorf("lowest score must sort last, got %s", signals[2].Trigger)
	}
}
