// Package observability exposes Prometheus metrics for the sync pipeline
// and the HTTP API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinswiper_sync_runs_total",
		Help: "Sync runs by outcome.",
	}, []string{"status"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coinswiper_sync_duration_seconds",
		Help:    "Wall-clock duration of successful sync runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	trackedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coinswiper_tracked_tokens",
		Help: "Token records currently in the database.",
	})

	votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinswiper_votes_total",
		Help: "Votes recorded by type.",
	}, []string{"type"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinswiper_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coinswiper_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	cacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinswiper_cache_ops_total",
		Help: "Read-path cache lookups by result.",
	}, []string{"result"})

	activityClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coinswiper_activity_clients",
		Help: "Connected vote-activity websocket clients.",
	})

	pairsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinswiper_pairs_fetched_total",
		Help: "Raw pairs returned by upstream queries across all runs.",
	})

	pairsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinswiper_pairs_dropped_total",
		Help: "Pairs rejected during validation by reason.",
	}, []string{"reason"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coinswiper_upstream_request_duration_seconds",
		Help:    "Upstream API request latency by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
)

// RecordSyncRun counts a run and, when successful, observes its duration.
func RecordSyncRun(status string, seconds float64) {
	syncRunsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		syncDuration.Observe(seconds)
	}
}

// SetTrackedTokens updates the database record gauge.
func SetTrackedTokens(n int) {
	trackedTokens.Set(float64(n))
}

// RecordVote counts one recorded vote.
func RecordVote(voteType string) {
	votesTotal.WithLabelValues(voteType).Inc()
}

// RecordHTTPRequest counts one handled request and its latency.
func RecordHTTPRequest(route, code string, seconds float64) {
	httpRequestsTotal.WithLabelValues(route, code).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}

// RecordCacheHit counts a cache hit.
func RecordCacheHit() { cacheOpsTotal.WithLabelValues("hit").Inc() }

// RecordCacheMiss counts a cache miss.
func RecordCacheMiss() { cacheOpsTotal.WithLabelValues("miss").Inc() }

// ActivityClientConnected tracks a websocket client attach.
func ActivityClientConnected() { activityClients.Inc() }

// ActivityClientDisconnected tracks a websocket client detach.
func ActivityClientDisconnected() { activityClients.Dec() }

// RecordPairsFetched counts raw pairs returned by one run's fetch phase.
func RecordPairsFetched(n int) {
	pairsFetchedTotal.Add(float64(n))
}

// RecordPairsDropped counts pairs rejected for one reason in one run.
func RecordPairsDropped(reason string, n int) {
	pairsDroppedTotal.WithLabelValues(reason).Add(float64(n))
}

// RecordUpstreamRequest observes one upstream API call.
func RecordUpstreamRequest(status string, seconds float64) {
	upstreamDuration.WithLabelValues(status).Observe(seconds)
}
