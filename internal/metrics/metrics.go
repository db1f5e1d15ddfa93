package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Materialization metrics
	MaterializeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "materialize_runs_total",
			Help: "Total number of calendar materialization runs",
		},
		[]string{"status"},
	)

	MaterializeRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "materialize_run_duration_seconds",
			Help:    "Calendar materialization run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CalendarRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_rows_written_total",
			Help: "Total number of pricing calendar rows written",
		},
	)

	// Resolver metrics
	CellsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_cells_resolved_total",
			Help: "Total number of (unit, date) cells resolved",
		},
	)

	ResolveErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_resolve_errors_total",
			Help: "Total number of resolution errors by code",
		},
		[]string{"code"},
	)

	RuleConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_rule_conflicts_total",
			Help: "Total number of same-priority rule conflicts resolved by tie-break",
		},
	)

	SmartPricingFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smart_pricing_fallbacks_total",
			Help: "Total number of dates resolved from the static base price because no usable smart pricing record existed",
		},
	)

	// Smart pricing ingest metrics
	SmartSyncRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_sync_records_total",
			Help: "Total number of smart pricing sync records ingested",
		},
		[]string{"status"},
	)
)

// ObserveRun records the outcome and duration of a materialization run.
func ObserveRun(status string, start time.Time) {
	MaterializeRunsTotal.WithLabelValues(status).Inc()
	MaterializeRunDuration.Observe(time.Since(start).Seconds())
}
