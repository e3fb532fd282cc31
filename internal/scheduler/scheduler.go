// Package scheduler drives the premarket scan on a cron expression and
// the intraday monitor on an interval aligned to exchange trading
// windows.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"TrendSentinel/internal/export"
	"TrendSentinel/internal/monitor"
	"TrendSentinel/internal/pipeline"
	"TrendSentinel/internal/store"
)

// window is an intraday interval in exchange-local wall time.
type window struct {
	startHour, startMin int
	endHour, endMin     int
}

// Mainland session windows, with a margin before the open auction and
// after the close.
var tradingWindows = []window{
	{9, 20, 11, 35},
	{12, 50, 15, 10},
}

func (w window) contains(t time.Time) bool {
	mins := t.Hour()*60 + t.Minute()
	return mins >= w.startHour*60+w.startMin && mins <= w.endHour*60+w.endMin
}

// inTradingWindow reports whether t falls on a weekday inside a session
// window. Without an exchange calendar, weekdays are the fallback.
func inTradingWindow(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	for _, w := range tradingWindows {
		if w.contains(t) {
			return true
		}
	}
	return false
}

// alignToInterval returns the next instant after t that is a whole
// multiple of the interval within the hour.
func alignToInterval(t time.Time, interval time.Duration) time.Time {
	return t.Truncate(interval).Add(interval)
}

// Scheduler owns the cron scan and the intraday monitor loop.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
	Runner   *monitor.Runner

	exportDir  string
	exportTopN int
	interval   time.Duration
}

func New(p *pipeline.Pipeline, r *monitor.Runner, exportDir string, exportTopN, intervalMinutes int) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Pipeline:   p,
		Runner:     r,
		exportDir:  exportDir,
		exportTopN: exportTopN,
		interval:   time.Duration(intervalMinutes) * time.Minute,
	}
}

// Register installs the premarket scan at the given cron expression.
func (s *Scheduler) Register(ctx context.Context, scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, func() { s.scanTask(ctx) }); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Info().Msg("scheduler stopped")
}

// RunScanNow executes the scan task immediately (manual trigger).
func (s *Scheduler) RunScanNow(ctx context.Context) {
	s.scanTask(ctx)
}

func (s *Scheduler) scanTask(ctx context.Context) {
	log.Info().Msg("running premarket scan")
	recs, err := s.Pipeline.RunScan(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scan failed")
		return
	}
	if len(recs) == 0 {
		return
	}
	if _, err := export.WriteDecisions(s.exportDir, scanDate(recs), recs); err != nil {
		log.Error().Err(err).Msg("decision export failed")
	}
}

// scanDate is the latest trade date among the scan's decisions.
func scanDate(recs []store.DecisionRecord) time.Time {
	latest := recs[0].Decision.Date
	for _, r := range recs[1:] {
		if r.Decision.Date.After(latest) {
			latest = r.Decision.Date
		}
	}
	return latest
}

// RunMonitorLoop polls the intraday gate at the configured interval
// while inside a trading window, sleeping otherwise. Blocks until the
// context is canceled.
func (s *Scheduler) RunMonitorLoop(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("monitor loop started")
	for {
		now := time.Now()
		next := alignToInterval(now, s.interval)
		select {
		case <-ctx.Done():
			log.Info().Msg("monitor loop stopped")
			return
		case <-time.After(next.Sub(now)):
		}

		tick := time.Now()
		if !inTradingWindow(tick) {
			continue
		}
		evals, err := s.Runner.RunOnce(ctx, tick)
		if err != nil {
			log.Error().Err(err).Msg("monitor pass failed")
			continue
		}
		if len(evals) == 0 {
			continue
		}
		if _, err := export.WriteMonitorList(s.exportDir, day(tick), evals, s.exportTopN); err != nil {
			log.Error().Err(err).Msg("monitor export failed")
		}
	}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
