package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civicboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ToggleTotal counts toggle operations by kind, content type and resulting state.
	ToggleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicboard_toggle_total",
		Help: "Total number of vote/follow toggles",
	}, []string{"kind", "content_type", "state"})

	// ToggleConflicts counts inserts that lost a race to a concurrent toggler.
	ToggleConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicboard_toggle_conflicts_total",
		Help: "Toggle inserts that hit the uniqueness constraint",
	}, []string{"kind", "content_type"})

	// GeoFilteredRecords counts candidate rows dropped by the radius filter.
	GeoFilteredRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicboard_geo_filtered_records_total",
		Help: "Records removed by the geospatial radius filter",
	}, []string{"entity"})

	// CacheErrors counts Redis errors by operation type.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicboard_cache_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}
