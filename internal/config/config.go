package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL      string   `yaml:"base_url"` // quote endpoint override, empty = default
		Symbols      []string `yaml:"symbols"`
		Benchmark    string   `yaml:"benchmark"`
		LookbackDays int      `yaml:"lookback_days"`
	} `yaml:"data_source"`
	Strategy struct {
		VolumeRatioThreshold   float64 `yaml:"volume_ratio_threshold"`
		PullbackBandATRMult    float64 `yaml:"pullback_band_atr_multiple"`
		PullbackVolMax         float64 `yaml:"pullback_vol_max"` // pullback-day volume vs 5d average
		RelativeStrengthBonus  float64 `yaml:"relative_strength_bonus"`
		RelativeStrengthWindow int     `yaml:"relative_strength_window"`
		ValidDays              int     `yaml:"valid_days"`
	} `yaml:"strategy"`
	Monitor struct {
		MaxGapUpPct       float64 `yaml:"max_gap_up_pct"`
		MaxGapDownPct     float64 `yaml:"max_gap_down_pct"`
		GapBandUpATR      float64 `yaml:"gap_band_up_atr"`
		GapBandDownATR    float64 `yaml:"gap_band_down_atr"`
		VWAPBreakPct      float64 `yaml:"vwap_break_pct"`
		LimitUpTriggerPct float64 `yaml:"limit_up_trigger_pct"` // percentage, not fraction
		LookbackDays      int     `yaml:"signal_lookback_days"`
		IntervalMinutes   int     `yaml:"interval_minutes"`
		QuoteMaxAge       int     `yaml:"quote_max_age_seconds"`
	} `yaml:"monitor"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Export struct {
		Dir  string `yaml:"dir"`
		TopN int    `yaml:"top_n"`
	} `yaml:"export"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"`
	} `yaml:"metrics"`
	// RiskFlags marks symbols with external fundamental flags, e.g.
	// special_treatment or abnormal_movement. Flagged symbols are
	// stopped by the arbitrator regardless of trend score.
	RiskFlags map[string][]string `yaml:"risk_flags"`
	Workers   int                 `yaml:"workers"`
	Proxy     string              `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("QUOTE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.DataSource.Symbols = splitList(v)
	}
	if v := os.Getenv("BENCHMARK"); v != "" {
		cfg.DataSource.Benchmark = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Schedule.ScanCron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("MONITOR_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.IntervalMinutes = n
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Benchmark == "" {
		c.DataSource.Benchmark = "sh.000300"
	}
	if c.DataSource.LookbackDays == 0 {
		c.DataSource.LookbackDays = 365
	}
	if c.Strategy.VolumeRatioThreshold == 0 {
		c.Strategy.VolumeRatioThreshold = 1.5
	}
	if c.Strategy.PullbackBandATRMult == 0 {
		c.Strategy.PullbackBandATRMult = 0.6
	}
	if c.Strategy.PullbackVolMax == 0 {
		c.Strategy.PullbackVolMax = 1.1
	}
	if c.Strategy.RelativeStrengthBonus == 0 {
		c.Strategy.RelativeStrengthBonus = 0.5
	}
	if c.Strategy.RelativeStrengthWindow == 0 {
		c.Strategy.RelativeStrengthWindow = 5
	}
	if c.Strategy.ValidDays == 0 {
		c.Strategy.ValidDays = 3
	}
	if c.Monitor.MaxGapUpPct == 0 {
		c.Monitor.MaxGapUpPct = 0.05
	}
	if c.Monitor.MaxGapDownPct == 0 {
		c.Monitor.MaxGapDownPct = -0.03
	}
	if c.Monitor.GapBandUpATR == 0 {
		c.Monitor.GapBandUpATR = 2.0
	}
	if c.Monitor.GapBandDownATR == 0 {
		c.Monitor.GapBandDownATR = 1.5
	}
	if c.Monitor.VWAPBreakPct == 0 {
		c.Monitor.VWAPBreakPct = -0.015
	}
	if c.Monitor.LimitUpTriggerPct == 0 {
		c.Monitor.LimitUpTriggerPct = 9.7
	}
	if c.Monitor.LookbackDays == 0 {
		c.Monitor.LookbackDays = 5
	}
	if c.Monitor.IntervalMinutes == 0 {
		c.Monitor.IntervalMinutes = 5
	}
	if c.Monitor.QuoteMaxAge == 0 {
		c.Monitor.QuoteMaxAge = 120
	}
	if c.Schedule.ScanCron == "" {
		// Premarket scan: 08:30 on weekdays.
		c.Schedule.ScanCron = "0 30 8 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/trend_sentinel.db"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "output"
	}
	if c.Export.TopN == 0 {
		c.Export.TopN = 100
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9105"
	}
	if c.Workers == 0 {
		c.Workers = 8
	}
}

// Validate checks that all thresholds are well formed. A failure here is
// fatal at startup: evaluation never runs with undefined thresholds.
func (c *Config) Validate() error {
	if len(c.DataSource.Symbols) == 0 {
		return fmt.Errorf("data_source.symbols is required")
	}
	if c.DataSource.LookbackDays < 250 {
		return fmt.Errorf("data_source.lookback_days must be >= 250, got %d", c.DataSource.LookbackDays)
	}
	if c.Strategy.VolumeRatioThreshold <= 0 {
		return fmt.Errorf("strategy.volume_ratio_threshold must be positive")
	}
	if c.Strategy.PullbackBandATRMult <= 0 {
		return fmt.Errorf("strategy.pullback_band_atr_multiple must be positive")
	}
	if c.Strategy.ValidDays <= 0 {
		return fmt.Errorf("strategy.valid_days must be positive")
	}
	if c.Monitor.MaxGapUpPct <= 0 {
		return fmt.Errorf("monitor.max_gap_up_pct must be positive")
	}
	if c.Monitor.MaxGapDownPct >= 0 {
		return fmt.Errorf("monitor.max_gap_down_pct must be negative")
	}
	if c.Monitor.VWAPBreakPct >= 0 {
		return fmt.Errorf("monitor.vwap_break_pct must be negative")
	}
	if c.Monitor.LimitUpTriggerPct <= 0 || c.Monitor.LimitUpTriggerPct > 20 {
		return fmt.Errorf("monitor.limit_up_trigger_pct out of range: %v", c.Monitor.LimitUpTriggerPct)
	}
	if c.Monitor.GapBandUpATR <= 0 || c.Monitor.GapBandDownATR <= 0 {
		return fmt.Errorf("monitor gap band ATR multiples must be positive")
	}
	if c.Monitor.LookbackDays <= 0 {
		return fmt.Errorf("monitor.signal_lookback_days must be positive")
	}
	if c.Monitor.IntervalMinutes <= 0 {
		return fmt.Errorf("monitor.interval_minutes must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	for sym, flags := range c.RiskFlags {
		for _, f := range flags {
			if f != "special_treatment" && f != "abnormal_movement" {
				return fmt.Errorf("risk_flags.%s: unknown flag %q", sym, f)
			}
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
