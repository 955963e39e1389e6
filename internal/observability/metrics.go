// Package observability provides metrics, tracing and audit logging.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestpost_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// VerificationAttempts counts ownership verification attempts by method and outcome.
	VerificationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestpost_verification_attempts_total",
		Help: "Total number of ownership verification attempts",
	}, []string{"method", "outcome"})

	// VerificationLatency records how long an ownership check took.
	VerificationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "guestpost_verification_latency_seconds",
		Help:    "Ownership check latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// OwnershipTransfers counts listings taken over by a newly verified owner.
	OwnershipTransfers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guestpost_ownership_transfers_total",
		Help: "Total number of domain ownership transfers",
	})

	// ModerationActions counts admin moderation actions.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestpost_moderation_actions_total",
		Help: "Total number of moderation actions by type",
	}, []string{"action"})

	// CatalogCacheLookups counts catalog cache hits and misses.
	CatalogCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestpost_catalog_cache_lookups_total",
		Help: "Catalog cache lookups by result",
	}, []string{"result"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestpost_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// Verification outcomes.
const (
	OutcomeVerified    = "verified"
	OutcomeTransferred = "transferred"
	OutcomePending     = "pending"
	OutcomeFailed      = "failed"
)

// RecordVerification records one verification attempt.
func RecordVerification(method, outcome string, start time.Time) {
	VerificationAttempts.WithLabelValues(method, outcome).Inc()
	VerificationLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if outcome == OutcomeTransferred {
		OwnershipTransfers.Inc()
	}
}
