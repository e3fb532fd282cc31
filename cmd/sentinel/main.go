package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"TrendSentinel/internal/config"
	"TrendSentinel/internal/export"
	"TrendSentinel/internal/feed"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/monitor"
	"TrendSentinel/internal/pipeline"
	"TrendSentinel/internal/scheduler"
	"TrendSentinel/internal/store"
)

var (
	cfgPath  string
	useMock  bool
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "sentinel",
		Short: "Trend-following decision engine for equity symbols",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "config file path")
	root.PersistentFlags().BoolVar(&useMock, "mock", false, "use the mock data feed")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "zerolog level")

	root.AddCommand(scanCmd(), monitorCmd(), runCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// app is the wired application: config, feed, store, pipeline, monitor.
type app struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	runner   *monitor.Runner
	store    store.Store
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var fetcher feed.Fetcher
	if useMock {
		fetcher = &feed.MockFetcher{}
	} else {
		fetcher = feed.NewEastmoneyFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	}
	log.Info().Str("feed", fetcher.Name()).Int("symbols", len(cfg.DataSource.Symbols)).Msg("data source ready")

	var st store.Store
	if cfg.Database.SQLitePath != "" {
		s, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite store unavailable, using noop")
			st = store.NewNoopStore()
		} else {
			st = s
		}
	} else {
		st = store.NewNoopStore()
	}

	p := pipeline.New(cfg, fetcher, st)
	if err := p.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("phase state restore failed, starting neutral")
	}

	gate := monitor.NewGate(monitor.Params{
		MaxGapUpPct:       cfg.Monitor.MaxGapUpPct,
		MaxGapDownPct:     cfg.Monitor.MaxGapDownPct,
		GapBandUpATR:      cfg.Monitor.GapBandUpATR,
		GapBandDownATR:    cfg.Monitor.GapBandDownATR,
		VWAPBreakPct:      cfg.Monitor.VWAPBreakPct,
		LimitUpTriggerPct: cfg.Monitor.LimitUpTriggerPct,
		QuoteMaxAge:       time.Duration(cfg.Monitor.QuoteMaxAge) * time.Second,
	})
	runner := monitor.NewRunner(gate, fetcher, st, cfg.Monitor.LookbackDays)

	if cfg.Metrics.Enabled {
		go metrics.Serve(cfg.Metrics.Listen)
	}
	return &app{cfg: cfg, pipeline: p, runner: runner, store: st}, nil
}

// scanCmd runs one full universe scan and exits.
func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one end-of-day scan and export decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.store.Close()

			recs, err := a.pipeline.RunScan(ctx)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				log.Warn().Msg("scan produced no decisions")
				return nil
			}
			latest := recs[0].Decision.Date
			for _, r := range recs[1:] {
				if r.Decision.Date.After(latest) {
					latest = r.Decision.Date
				}
			}
			_, err = export.WriteDecisions(a.cfg.Export.Dir, latest, recs)
			return err
		},
	}
}

// monitorCmd runs one intraday gate pass and exits.
func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run one intraday gate pass over recent BUY decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.store.Close()

			now := time.Now()
			evals, err := a.runner.RunOnce(ctx, now)
			if err != nil {
				return err
			}
			if len(evals) == 0 {
				log.Info().Msg("nothing to monitor")
				return nil
			}
			_, err = export.WriteMonitorList(a.cfg.Export.Dir, day(now), evals, a.cfg.Export.TopN)
			return err
		},
	}
}

// runCmd runs the long-lived service: cron scan plus the intraday loop.
func runCmd() *cobra.Command {
	var scanOnStart bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler: cron scan plus intraday monitoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.store.Close()

			sched := scheduler.New(a.pipeline, a.runner,
				a.cfg.Export.Dir, a.cfg.Export.TopN, a.cfg.Monitor.IntervalMinutes)
			if err := sched.Register(ctx, a.cfg.Schedule.ScanCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			go sched.RunMonitorLoop(ctx)

			if scanOnStart || os.Getenv("RUN_ON_START") == "true" {
				log.Info().Msg("running scan on start")
				go sched.RunScanNow(ctx)
			}

			log.Info().Msg("sentinel is running, Ctrl+C to stop")
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info().Msg("shutdown signal received")
			cancel()
			return nil
		},
	}
	cmd.Flags().BoolVar(&scanOnStart, "scan-on-start", false, "run a full scan immediately")
	return cmd
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
