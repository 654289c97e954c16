// Package metrics exposes the core's operational counters and
// histograms via prometheus/client_golang, following the same
// promauto-package-of-globals pattern as the teacher's
// internal/fraud/metrics.go: one section per subsystem, plus small
// Record* helpers so callers never touch label ordering directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Table Engine Metrics
	HandsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_hands_started_total",
		Help: "Total number of hands started per table",
	}, []string{"table_id"})

	HandsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_hands_completed_total",
		Help: "Total number of hands completed per table",
	}, []string{"table_id", "outcome"})

	HandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_core_hand_duration_seconds",
		Help:    "Time from GAME_STARTED to HAND_COMPLETED",
		Buckets: prometheus.DefBuckets,
	}, []string{"table_id"})

	ActionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_actions_processed_total",
		Help: "Total number of player actions processed",
	}, []string{"table_id", "kind"})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_events_emitted_total",
		Help: "Total number of table events emitted",
	}, []string{"table_id", "kind"})

	// Betting Engine Metrics
	ValidationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_core_validation_cache_hits_total",
		Help: "Total number of betting validation cache hits",
	})

	ValidationCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_core_validation_cache_misses_total",
		Help: "Total number of betting validation cache misses",
	})

	// State Synchronizer Metrics
	SnapshotsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_snapshots_created_total",
		Help: "Total number of synchronizer snapshots created",
	}, []string{"table_id"})

	DeltaBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_core_sync_delta_bytes",
		Help:    "Size in bytes of generated state deltas",
		Buckets: []float64{64, 256, 1024, 4096, 10240, 40960},
	}, []string{"table_id"})

	SyncFallbackToSnapshot = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_sync_snapshot_fallback_total",
		Help: "Total number of Sync calls that fell back to a full snapshot",
	}, []string{"table_id"})

	// Error Recovery Fabric Metrics
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "poker_core_circuit_breaker_state",
		Help: "Circuit breaker state: 0=closed, 1=open, 2=half_open",
	}, []string{"resource"})

	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips per resource",
	}, []string{"resource"})

	RetryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_retry_attempts_total",
		Help: "Total number of retry attempts per resource",
	}, []string{"resource", "outcome"})

	ErrorsByClass = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_core_errors_by_class_total",
		Help: "Total number of errors observed, by recovery error class",
	}, []string{"class"})
)

// RecordHandStarted increments the hands-started counter for tableID.
func RecordHandStarted(tableID string) {
	HandsStarted.WithLabelValues(tableID).Inc()
}

// RecordHandCompleted increments the hands-completed counter and
// observes hand duration in seconds.
func RecordHandCompleted(tableID, outcome string, durationSeconds float64) {
	HandsCompleted.WithLabelValues(tableID, outcome).Inc()
	HandDuration.WithLabelValues(tableID).Observe(durationSeconds)
}

// RecordAction increments the actions-processed counter for a kind.
func RecordAction(tableID, kind string) {
	ActionsProcessed.WithLabelValues(tableID, kind).Inc()
}

// RecordEvent increments the events-emitted counter for an event kind.
func RecordEvent(tableID, kind string) {
	EventsEmitted.WithLabelValues(tableID, kind).Inc()
}

// RecordBreakerState sets the gauge for a resource's breaker state
// (0=closed, 1=open, 2=half_open) and, on a transition into open,
// increments the trip counter.
func RecordBreakerState(resource string, state int, tripped bool) {
	CircuitBreakerState.WithLabelValues(resource).Set(float64(state))
	if tripped {
		CircuitBreakerTrips.WithLabelValues(resource).Inc()
	}
}

// RecordRetryAttempt increments the retry counter for a resource and
// outcome ("success", "failure", or "circuit-open").
func RecordRetryAttempt(resource, outcome string) {
	RetryAttempts.WithLabelValues(resource, outcome).Inc()
}

// RecordErrorClass increments the error-class counter.
func RecordErrorClass(class string) {
	ErrorsByClass.WithLabelValues(class).Inc()
}
