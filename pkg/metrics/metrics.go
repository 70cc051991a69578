// Package metrics provides Prometheus metrics for the oracle pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FeedFetchesTotal is a counter of feed fetch attempts.
	FeedFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_feed_fetches_total",
			Help: "Total number of feed fetch attempts",
		},
		[]string{"source", "status"},
	)

	// FeedFetchDuration is a histogram of feed fetch latencies.
	FeedFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_feed_fetch_duration_seconds",
			Help:    "Latency of feed fetches",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// QuorumFailuresTotal is a counter of ticks aborted for lack of quorum.
	QuorumFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_quorum_failures_total",
			Help: "Total number of ticks aborted because quorum was not met",
		},
		[]string{"symbol"},
	)

	// ConsensusPrice is a gauge of the latest consensus price per symbol.
	ConsensusPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oracle_consensus_price",
			Help: "Latest consensus price per symbol",
		},
		[]string{"symbol"},
	)

	// ConsensusSpread is a gauge of the max pairwise quote spread per symbol.
	ConsensusSpread = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oracle_consensus_spread",
			Help: "Max pairwise spread of valid quotes in the last tick",
		},
		[]string{"symbol"},
	)

	// DegradedConsensusTotal is a counter of degraded-quality consensus values.
	DegradedConsensusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_degraded_consensus_total",
			Help: "Total number of consensus values flagged degraded (wide spread)",
		},
		[]string{"symbol"},
	)

	// AnnualizedVolatility is a gauge of the latest volatility estimate.
	AnnualizedVolatility = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oracle_annualized_volatility",
			Help: "Latest annualized volatility estimate per symbol",
		},
		[]string{"symbol"},
	)

	// SubmissionsTotal is a counter of submissions by terminal outcome.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_submissions_total",
			Help: "Total number of submissions by terminal outcome",
		},
		[]string{"symbol", "outcome"},
	)

	// SubmissionAttempts is a histogram of broadcast attempts per submission.
	SubmissionAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_submission_attempts",
			Help:    "Broadcast attempts used per submission",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	// SubmissionDuration is a histogram of end-to-end submission durations.
	SubmissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_submission_duration_seconds",
			Help:    "Duration from first broadcast to terminal outcome",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// TickDuration is a histogram of full pipeline tick durations.
	TickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_tick_duration_seconds",
			Help:    "Duration of a full fetch-aggregate-estimate-submit cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		FeedFetchesTotal,
		FeedFetchDuration,
		QuorumFailuresTotal,
		ConsensusPrice,
		ConsensusSpread,
		DegradedConsensusTotal,
		AnnualizedVolatility,
		SubmissionsTotal,
		SubmissionAttempts,
		SubmissionDuration,
		TickDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordFeedFetch records one feed fetch attempt.
func RecordFeedFetch(source, status string, duration time.Duration) {
	FeedFetchesTotal.WithLabelValues(source, status).Inc()
	FeedFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordQuorumFailure records a tick aborted for lack of quorum.
func RecordQuorumFailure(symbol string) {
	QuorumFailuresTotal.WithLabelValues(symbol).Inc()
}

// RecordConsensus records the consensus price and spread for a tick.
func RecordConsensus(symbol string, price, spread float64, degraded bool) {
	ConsensusPrice.WithLabelValues(symbol).Set(price)
	ConsensusSpread.WithLabelValues(symbol).Set(spread)
	if degraded {
		DegradedConsensusTotal.WithLabelValues(symbol).Inc()
	}
}

// RecordVolatility records the latest annualized volatility estimate.
func RecordVolatility(symbol string, vol float64) {
	AnnualizedVolatility.WithLabelValues(symbol).Set(vol)
}

// RecordSubmission records a submission's terminal outcome.
func RecordSubmission(symbol, outcome string, attempts int, duration time.Duration) {
	SubmissionsTotal.WithLabelValues(symbol, outcome).Inc()
	if attempts > 0 {
		SubmissionAttempts.Observe(float64(attempts))
	}
	SubmissionDuration.Observe(duration.Seconds())
}

// RecordTick records the duration of a full pipeline cycle.
func RecordTick(symbol string, duration time.Duration) {
	TickDuration.WithLabelValues(symbol).Observe(duration.Seconds())
}
