// Package metrics exposes Prometheus instrumentation for the scan and
// monitor loops.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trend_sentinel_decisions_total",
		Help: "Daily decisions emitted, by action.",
	}, []string{"action"})

	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trend_sentinel_signals_total",
		Help: "Trend signal candidates detected, by trigger.",
	}, []string{"trigger"})

	MonitorEvalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trend_sentinel_monitor_evals_total",
		Help: "Intraday gate evaluations, by action.",
	}, []string{"action"})

	FeedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trend_sentinel_feed_errors_total",
		Help: "Upstream feed failures, by operation.",
	}, []string{"op"})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trend_sentinel_scan_duration_seconds",
		Help:    "Wall time of one full universe scan.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

// Serve starts the /metrics listener. It never returns unless the
// listener fails.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("metrics listener starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics listener failed")
	}
}
