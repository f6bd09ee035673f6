// Package metrics declares the prometheus collectors ledgersync exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequests counts API round trips by method and status ("error" for transport failures).
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgersync_http_requests_total",
		Help: "API requests sent, by method and response status.",
	}, []string{"method", "status"})

	// TokenRefreshes counts refresh-token exchanges by outcome.
	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgersync_token_refreshes_total",
		Help: "Refresh-token exchanges, by outcome.",
	}, []string{"outcome"})

	// SyncDuration observes reconciliation time by entity family and outcome.
	SyncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgersync_sync_duration_seconds",
		Help:    "Time spent refreshing an entity family.",
		Buckets: prometheus.DefBuckets,
	}, []string{"family", "outcome"})

	// EvictedRecords counts stale rows deleted by reconciliation, cascades excluded.
	EvictedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgersync_evicted_records_total",
		Help: "Cached records removed because the host no longer returned them.",
	}, []string{"family"})

	// TierRuns counts scheduled refresh tier runs by tier and outcome.
	TierRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgersync_scheduler_tier_runs_total",
		Help: "Scheduled refresh tier runs, by tier and outcome.",
	}, []string{"tier", "outcome"})

	// BreakerState reports circuit breaker state: 0 closed, 1 half-open, 2 open.
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledgersync_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
	}, []string{"name"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, TokenRefreshes, SyncDuration, EvictedRecords, TierRuns, BreakerState)
}

// Outcome labels an operation result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
