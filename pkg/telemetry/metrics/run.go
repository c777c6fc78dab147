package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tablint/pkg/config"
)

// RunMetrics tracks lint runs.
//
// Metrics:
//   - tablint_runs_total: runs by status
//   - tablint_run_duration_seconds: run duration by status
//   - tablint_last_run_timestamp_seconds: finish time of the last run by status
//   - tablint_records_total: records evaluated
//   - tablint_type_mismatches_total: non-numeric values skipped by range rules
//   - tablint_violations_total: failure entries by scope, name and rule
//   - tablint_last_run_violations: failure entries of the most recent run
type RunMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	lastRunTimestamp *prometheus.GaugeVec

	recordsTotal        prometheus.Counter
	typeMismatchesTotal prometheus.Counter

	violationsTotal *prometheus.CounterVec
	lastViolations  *prometheus.GaugeVec
}

// NewRunMetrics creates and registers run metrics with the provided registry.
func NewRunMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_total",
				Help:      "Total number of lint runs",
			},
			[]string{"status"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of lint runs in seconds",
				// Small CSVs finish in milliseconds, large PostGIS tables in minutes.
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 9), // 10ms to ~11min
			},
			[]string{"status"},
		),

		lastRunTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the most recent run finished",
			},
			[]string{"status"},
		),

		recordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "records_total",
				Help:      "Total number of records evaluated",
			},
		),

		typeMismatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "type_mismatches_total",
				Help:      "Total number of non-numeric values skipped by range rules",
			},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "violations_total",
				Help:      "Total number of failure entries by field rule or group",
			},
			[]string{"scope", "name", "rule"},
		),

		lastViolations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "last_run_violations",
				Help:      "Failure entries of the most recent successful run",
			},
			[]string{"scope", "name", "rule"},
		),
	}

	registry.MustRegister(
		rm.runsTotal,
		rm.runDuration,
		rm.lastRunTimestamp,
		rm.recordsTotal,
		rm.typeMismatchesTotal,
		rm.violationsTotal,
		rm.lastViolations,
	)

	return rm
}
