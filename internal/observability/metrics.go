package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foreman_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ModeRequestsCreated counts mode-switch requests opened, by requested mode.
	ModeRequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_mode_requests_created_total",
		Help: "Total number of mode-switch requests created",
	}, []string{"requested_mode"})

	// ModeRequestsResolved counts mode-switch request resolutions, by decision.
	ModeRequestsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_mode_requests_resolved_total",
		Help: "Total number of mode-switch requests resolved",
	}, []string{"decision"})

	// ModeRequestConflicts counts rejected duplicate or already-resolved attempts.
	ModeRequestConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_mode_request_conflicts_total",
		Help: "Total number of conflicting mode-switch request operations",
	}, []string{"kind"})

	// AuthFailures counts failed authentication attempts by reason.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_auth_failures_total",
		Help: "Total number of failed authentication attempts",
	}, []string{"reason"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
