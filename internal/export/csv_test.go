package export

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/store"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteMonitorList_TruncatesToTopN(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	evals := []model.MonitorEval{
		{Symbol: "sz.000858", EvalDate: date, EvalTime: "09:30", Action: model.MonitorExecute, GapPct: 0.03, SignalDate: date.AddDate(0, 0, -1), Reasons: []string{"a"}},
		{Symbol: "sh.600519", EvalDate: date, EvalTime: "09:30", Action: model.MonitorWait, GapPct: 0.01, SignalDate: date.AddDate(0, 0, -1), Reasons: []string{"b", "c"}},
		{Symbol: "sh.601899", EvalDate: date, EvalTime: "09:30", Action: model.MonitorStop, GapPct: -0.01, SignalDate: date.AddDate(0, 0, -1), Reasons: []string{"d"}},
	}

	path, err := WriteMonitorList(t.TempDir(), date, evals, 2)
	require.NoError(t, err)
	assert.Contains(t, path, "monitor_20250610.csv")

	rows := readCSV(t, path)
	require.Len(t, rows, 3, "header plus top 2")
	assert.Equal(t, "symbol", rows[0][0])
	assert.Equal(t, "sz.000858", rows[1][0])
	assert.Equal(t, "b; c", rows[2][7])
}

func TestWriteDecisions(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	recs := []store.DecisionRecord{{
		Decision: model.Decision{
			Symbol: "sh.600519", Date: date, Action: model.ActionBuy,
			Reasons: []string{"trend_signal: golden_cross score=1.00"},
			Score:   1.0, ValidDays: 3,
		},
		PriorClose: 10.5,
	}}

	path, err := WriteDecisions(t.TempDir(), date, recs)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"sh.600519", "2025-06-10", "BUY", "1.00", "3", "10.50", "trend_signal: golden_cross score=1.00"}, rows[1])
}
