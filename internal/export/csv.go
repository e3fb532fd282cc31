// Package export writes the daily decision list and the open-monitor
// watch list as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/store"
)

// WriteMonitorList writes the watch list for one session, sorted as
// given (callers pass evals ordered by descending gap) and truncated to
// topN rows. Returns the written path.
func WriteMonitorList(dir string, evalDate time.Time, evals []model.MonitorEval, topN int) (string, error) {
	if topN > 0 && len(evals) > topN {
		evals = evals[:topN]
	}
	path := filepath.Join(dir, fmt.Sprintf("monitor_%s.csv", evalDate.Format("20060102")))

	rows := make([][]string, 0, len(evals)+1)
	rows = append(rows, []string{"symbol", "eval_date", "eval_time", "action", "gap_pct", "vwap_dev_pct", "signal_date", "reasons"})
	for _, ev := range evals {
		rows = append(rows, []string{
			ev.Symbol,
			ev.EvalDate.Format(model.DateLayout),
			ev.EvalTime,
			string(ev.Action),
			strconv.FormatFloat(ev.GapPct, 'f', 4, 64),
			strconv.FormatFloat(ev.VWAPDevPct, 'f', 4, 64),
			ev.SignalDate.Format(model.DateLayout),
			strings.Join(ev.Reasons, "; "),
		})
	}
	return path, writeCSV(path, rows)
}

// WriteDecisions writes all decisions from one scan. Returns the
// written path.
func WriteDecisions(dir string, date time.Time, recs []store.DecisionRecord) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("decisions_%s.csv", date.Format("20060102")))

	rows := make([][]string, 0, len(recs)+1)
	rows = append(rows, []string{"symbol", "trade_date", "action", "score", "valid_days", "prior_close", "reasons"})
	for _, rec := range recs {
		d := rec.Decision
		rows = append(rows, []string{
			d.Symbol,
			d.Date.Format(model.DateLayout),
			string(d.Action),
			strconv.FormatFloat(d.Score, 'f', 2, 64),
			strconv.Itoa(d.ValidDays),
			strconv.FormatFloat(rec.PriorClose, 'f', 2, 64),
			strings.Join(d.Reasons, "; "),
		})
	}
	return path, writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("rows", len(rows)-1).Msg("csv exported")
	return nil
}
