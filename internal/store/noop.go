package store

import (
	"context"
	"time"

	"TrendSentinel/internal/model"
)

// NoopStore discards everything. Useful for dry runs and tests that do
// not care about persistence.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) SaveSignals(context.Context, []model.TrendSignal) error { return nil }
func (n *NoopStore) SaveDecision(context.Context, DecisionRecord) error     { return nil }
func (n *NoopStore) BuyDecisions(context.Context, time.Time, time.Time) ([]DecisionRecord, error) {
	return nil, nil
}
func (n *NoopStore) SavePhaseState(context.Context, model.PhaseState) error { return nil }
func (n *NoopStore) PhaseStates(context.Context) ([]model.PhaseState, error) {
	return nil, nil
}
func (n *NoopStore) SaveMonitorEval(context.Context, model.MonitorEval) error { return nil }
func (n *NoopStore) MonitorEvals(context.Context, time.Time) ([]model.MonitorEval, error) {
	return nil, nil
}
func (n *NoopStore) Close() error { return nil }
