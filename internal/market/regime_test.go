package market

import (
	"testing"
	"time"

	"TrendSentinel/internal/model"
)

func benchBars(n int, slope float64) []model.Bar {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		p := 3500.0 + float64(i)*slope
		bars[i] = model.Bar{
			Symbol: "sh.000300",
			Date:   start.AddDate(0, 0, i),
			Open:   p, High: p * 1.003, Low: p * 0.997, Close: p,
			Volume: 1_000_000,
		}
	}
	return bars
}

func TestClassify_UptrendIsRiskOn(t *testing.T) {
	regime, err := NewClassifier(DefaultParams()).Classify(benchBars(120, 2.0))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if regime != model.RegimeRiskOn {
		t.Errorf("steady uptrend should read RISK_ON, got %s", regime)
	}
}

func TestClassify_DowntrendIsRiskOff(t *testing.T) {
	regime, err := NewClassifier(DefaultParams()).Classify(benchBars(120, -2.0))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if regime != model.RegimeRiskOff {
		t.Errorf("steady downtrend should read RISK_OFF, got %s", regime)
	}
}

func TestClassify_ShortHistoryDefaultsRiskOn(t *testing.T) {
	regime, err := NewClassifier(DefaultParams()).Classify(benchBars(30, 1.0))
	if err == nil {
		t.Error("short history should report an error")
	}
	if regime != model.RegimeRiskOn {
		t.Errorf("short history must never suppress the universe, got %s", regime)
	}
}
