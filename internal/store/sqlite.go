package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"TrendSentinel/internal/model"
)

// SQLiteStore persists pipeline outputs to a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so exports and ad-hoc queries can read while the pipeline writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trend_signals (
			symbol     TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			kind       TEXT NOT NULL,
			trigger    TEXT NOT NULL,
			score      REAL NOT NULL,
			note       TEXT,
			PRIMARY KEY (symbol, trade_date, trigger)
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			symbol      TEXT NOT NULL,
			trade_date  TEXT NOT NULL,
			action      TEXT NOT NULL,
			reasons     TEXT NOT NULL,
			signal_ids  TEXT NOT NULL,
			score       REAL NOT NULL,
			valid_days  INTEGER NOT NULL,
			prior_close REAL,
			ma20        REAL,
			atr14       REAL,
			PRIMARY KEY (symbol, trade_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_action ON decisions(action, trade_date)`,
		`CREATE TABLE IF NOT EXISTS phase_states (
			symbol     TEXT PRIMARY KEY,
			as_of_date TEXT NOT NULL,
			phase      TEXT NOT NULL,
			last_event TEXT NOT NULL,
			divergence INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS monitor_evals (
			symbol       TEXT NOT NULL,
			eval_date    TEXT NOT NULL,
			eval_time    TEXT NOT NULL,
			action       TEXT NOT NULL,
			gap_pct      REAL NOT NULL,
			vwap_dev_pct REAL NOT NULL,
			reasons      TEXT NOT NULL,
			signal_date  TEXT NOT NULL,
			PRIMARY KEY (symbol, eval_date)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSignals(ctx context.Context, signals []model.TrendSignal) error {
	if len(signals) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO trend_signals (symbol, trade_date, kind, trigger, score, note)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, trade_date, trigger)
		DO UPDATE SET kind=excluded.kind, score=excluded.score, note=excluded.note`
	for _, sig := range signals {
		if _, err := tx.ExecContext(ctx, q,
			sig.Symbol, sig.Date.Format(model.DateLayout),
			string(sig.Kind), string(sig.Trigger), sig.Score, sig.Note,
		); err != nil {
			return fmt.Errorf("upsert signal %s: %w", sig.ID(), err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveDecision(ctx context.Context, rec DecisionRecord) error {
	d := rec.Decision
	reasons, err := json.Marshal(d.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	signalIDs, err := json.Marshal(d.SignalIDs)
	if err != nil {
		return fmt.Errorf("marshal signal ids: %w", err)
	}

	const q = `INSERT INTO decisions
		(symbol, trade_date, action, reasons, signal_ids, score, valid_days, prior_close, ma20, atr14)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			action=excluded.action, reasons=excluded.reasons,
			signal_ids=excluded.signal_ids, score=excluded.score,
			valid_days=excluded.valid_days, prior_close=excluded.prior_close,
			ma20=excluded.ma20, atr14=excluded.atr14`
	_, err = s.db.ExecContext(ctx, q,
		d.Symbol, d.Date.Format(model.DateLayout), string(d.Action),
		string(reasons), string(signalIDs), d.Score, d.ValidDays,
		nullifyNaN(rec.PriorClose), nullifyNaN(rec.MA20), nullifyNaN(rec.ATR14),
	)
	if err != nil {
		return fmt.Errorf("upsert decision %s/%s: %w", d.Symbol, d.Date.Format(model.DateLayout), err)
	}
	return nil
}

type decisionRow struct {
	Symbol     string   `db:"symbol"`
	TradeDate  string   `db:"trade_date"`
	Action     string   `db:"action"`
	Reasons    string   `db:"reasons"`
	SignalIDs  string   `db:"signal_ids"`
	Score      float64  `db:"score"`
	ValidDays  int      `db:"valid_days"`
	PriorClose *float64 `db:"prior_close"`
	MA20       *float64 `db:"ma20"`
	ATR14      *float64 `db:"atr14"`
}

func (s *SQLiteStore) BuyDecisions(ctx context.Context, from, to time.Time) ([]DecisionRecord, error) {
	var rows []decisionRow
	const q = `SELECT symbol, trade_date, action, reasons, signal_ids, score,
			valid_days, prior_close, ma20, atr14
		FROM decisions
		WHERE action = 'BUY' AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date, symbol`
	if err := s.db.SelectContext(ctx, &rows, q,
		from.Format(model.DateLayout), to.Format(model.DateLayout)); err != nil {
		return nil, fmt.Errorf("query buy decisions: %w", err)
	}

	out := make([]DecisionRecord, 0, len(rows))
	for _, r := range rows {
		date, err := time.Parse(model.DateLayout, r.TradeDate)
		if err != nil {
			return nil, fmt.Errorf("parse trade_date %q: %w", r.TradeDate, err)
		}
		d := model.Decision{
			Symbol:    r.Symbol,
			Date:      date,
			Action:    model.Action(r.Action),
			Score:     r.Score,
			ValidDays: r.ValidDays,
		}
		if err := json.Unmarshal([]byte(r.Reasons), &d.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal reasons: %w", err)
		}
		if err := json.Unmarshal([]byte(r.SignalIDs), &d.SignalIDs); err != nil {
			return nil, fmt.Errorf("unmarshal signal ids: %w", err)
		}
		out = append(out, DecisionRecord{
			Decision:   d,
			PriorClose: deref(r.PriorClose),
			MA20:       deref(r.MA20),
			ATR14:      deref(r.ATR14),
		})
	}
	return out, nil
}

func (s *SQLiteStore) SavePhaseState(ctx context.Context, st model.PhaseState) error {
	const q = `INSERT INTO phase_states (symbol, as_of_date, phase, last_event, divergence)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			as_of_date=excluded.as_of_date, phase=excluded.phase,
			last_event=excluded.last_event, divergence=excluded.divergence`
	_, err := s.db.ExecContext(ctx, q,
		st.Symbol, st.AsOfDate.Format(model.DateLayout),
		string(st.Phase), string(st.LastEvent), boolToInt(st.Divergence),
	)
	if err != nil {
		return fmt.Errorf("upsert phase state %s: %w", st.Symbol, err)
	}
	return nil
}

type phaseRow struct {
	Symbol     string `db:"symbol"`
	AsOfDate   string `db:"as_of_date"`
	Phase      string `db:"phase"`
	LastEvent  string `db:"last_event"`
	Divergence int    `db:"divergence"`
}

func (s *SQLiteStore) PhaseStates(ctx context.Context) ([]model.PhaseState, error) {
	var rows []phaseRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT symbol, as_of_date, phase, last_event, divergence FROM phase_states`); err != nil {
		return nil, fmt.Errorf("query phase states: %w", err)
	}
	out := make([]model.PhaseState, 0, len(rows))
	for _, r := range rows {
		date, err := time.Parse(model.DateLayout, r.AsOfDate)
		if err != nil {
			return nil, fmt.Errorf("parse as_of_date %q: %w", r.AsOfDate, err)
		}
		out = append(out, model.PhaseState{
			Symbol:     r.Symbol,
			AsOfDate:   date,
			Phase:      model.Phase(r.Phase),
			LastEvent:  model.PhaseEvent(r.LastEvent),
			Divergence: r.Divergence != 0,
		})
	}
	return out, nil
}

func (s *SQLiteStore) SaveMonitorEval(ctx context.Context, ev model.MonitorEval) error {
	reasons, err := json.Marshal(ev.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	// One logical record per (symbol, eval_date): later polls in the
	// same session replace the row, eval_time records the latest pass.
	const q = `INSERT INTO monitor_evals
		(symbol, eval_date, eval_time, action, gap_pct, vwap_dev_pct, reasons, signal_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, eval_date) DO UPDATE SET
			eval_time=excluded.eval_time, action=excluded.action,
			gap_pct=excluded.gap_pct, vwap_dev_pct=excluded.vwap_dev_pct,
			reasons=excluded.reasons, signal_date=excluded.signal_date`
	_, err = s.db.ExecContext(ctx, q,
		ev.Symbol, ev.EvalDate.Format(model.DateLayout), ev.EvalTime,
		string(ev.Action), ev.GapPct, ev.VWAPDevPct, string(reasons),
		ev.SignalDate.Format(model.DateLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert monitor eval %s/%s: %w", ev.Symbol, ev.EvalTime, err)
	}
	return nil
}

type monitorRow struct {
	Symbol     string  `db:"symbol"`
	EvalDate   string  `db:"eval_date"`
	EvalTime   string  `db:"eval_time"`
	Action     string  `db:"action"`
	GapPct     float64 `db:"gap_pct"`
	VWAPDevPct float64 `db:"vwap_dev_pct"`
	Reasons    string  `db:"reasons"`
	SignalDate string  `db:"signal_date"`
}

func (s *SQLiteStore) MonitorEvals(ctx context.Context, evalDate time.Time) ([]model.MonitorEval, error) {
	var rows []monitorRow
	const q = `SELECT symbol, eval_date, eval_time, action, gap_pct, vwap_dev_pct, reasons, signal_date
		FROM monitor_evals WHERE eval_date = ? ORDER BY symbol`
	if err := s.db.SelectContext(ctx, &rows, q, evalDate.Format(model.DateLayout)); err != nil {
		return nil, fmt.Errorf("query monitor evals: %w", err)
	}
	out := make([]model.MonitorEval, 0, len(rows))
	for _, r := range rows {
		ed, err := time.Parse(model.DateLayout, r.EvalDate)
		if err != nil {
			return nil, fmt.Errorf("parse eval_date %q: %w", r.EvalDate, err)
		}
		sd, err := time.Parse(model.DateLayout, r.SignalDate)
		if err != nil {
			return nil, fmt.Errorf("parse signal_date %q: %w", r.SignalDate, err)
		}
		ev := model.MonitorEval{
			Symbol:     r.Symbol,
			EvalDate:   ed,
			EvalTime:   r.EvalTime,
			Action:     model.MonitorAction(r.Action),
			GapPct:     r.GapPct,
			VWAPDevPct: r.VWAPDevPct,
			SignalDate: sd,
		}
		if err := json.Unmarshal([]byte(r.Reasons), &ev.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal reasons: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullifyNaN converts undefined indicator values to SQL NULL.
func nullifyNaN(v float64) interface{} {
	if !model.Defined(v) {
		return nil
	}
	return v
}

// deref reads a nullable level column; absent levels read as zero so
// downstream guards treat them as unavailable.
func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
