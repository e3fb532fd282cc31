package store

import (
	"context"
	"time"

	"TrendSentinel/internal/model"
)

// DecisionRecord is a Decision plus the indicator levels it was made on.
// The intraday gate reads these levels back the next session instead of
// recomputing the full history.
type DecisionRecord struct {
	Decision   model.Decision
	PriorClose float64
	MA20       float64
	ATR14      float64
}

// Store persists pipeline outputs. All writes are upserts keyed by the
// entity's natural key, so duplicate or concurrent invocations converge
// to one record instead of erroring.
type Store interface {
	SaveSignals(ctx context.Context, signals []model.TrendSignal) error
	SaveDecision(ctx context.Context, rec DecisionRecord) error
	BuyDecisions(ctx context.Context, from, to time.Time) ([]DecisionRecord, error)
	SavePhaseState(ctx context.Context, st model.PhaseState) error
	PhaseStates(ctx context.Context) ([]model.PhaseState, error)
	SaveMonitorEval(ctx context.Context, ev model.MonitorEval) error
	MonitorEvals(ctx context.Context, evalDate time.Time) ([]model.MonitorEval, error)
	Close() error
}
