package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "billing_desk_"

	resultSuccess  = "success"
	resultError    = "error"
	resultConflict = "conflict"

	sourceCache   = "cache"
	sourceBackend = "backend"

	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

var (
	registerOnce sync.Once

	statementFetchTotal   *prometheus.CounterVec
	statementFetchLatency *prometheus.HistogramVec

	statementExportTotal   *prometheus.CounterVec
	statementExportLatency *prometheus.HistogramVec

	mutationTotal *prometheus.CounterVec
	conflictTotal *prometheus.CounterVec

	reconcileMismatchTotal prometheus.Counter
	cacheRequestsTotal     *prometheus.CounterVec
)

// Init registers statement metrics and, when db is set, the audit database gauges.
func Init(db *sql.DB, logger zerolog.Logger) {
	registerOnce.Do(func() {
		statementFetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_fetch_total",
				Help: "Total statement snapshot fetches by source and result",
			},
			[]string{"source", "result"},
		)
		statementFetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_fetch_latency_seconds",
				Help:    "Statement snapshot fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source", "result"},
		)

		statementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total statement export operations by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		mutationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_mutation_total",
				Help: "Total receivable, payment, credit and task edits by action and result",
			},
			[]string{"action", "result"},
		)
		conflictTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_conflict_total",
				Help: "Total business conflicts returned by the backend by kind",
			},
			[]string{"kind"},
		)

		reconcileMismatchTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_reconcile_mismatch_total",
				Help: "Statements whose computed totals differ from the backend totals",
			},
		)
		cacheRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_cache_requests_total",
				Help: "Snapshot cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			statementFetchTotal,
			statementFetchLatency,
			statementExportTotal,
			statementExportLatency,
			mutationTotal,
			conflictTotal,
			reconcileMismatchTotal,
			cacheRequestsTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveStatementFetch records a snapshot fetch from the cache or the backend.
func ObserveStatementFetch(source, result string, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if statementFetchTotal != nil {
		statementFetchTotal.WithLabelValues(source, result).Inc()
	}
	if statementFetchLatency != nil {
		statementFetchLatency.WithLabelValues(source, result).Observe(duration.Seconds())
	}
}

// ObserveStatementExport records export latency and result.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if statementExportTotal != nil {
		statementExportTotal.WithLabelValues(format, result).Inc()
	}
	if statementExportLatency != nil {
		statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncMutation counts a ledger edit.
func IncMutation(action, result string) {
	if action == "" {
		action = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if mutationTotal != nil {
		mutationTotal.WithLabelValues(action, result).Inc()
	}
}

// IncConflict counts a backend conflict by kind.
func IncConflict(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if conflictTotal != nil {
		conflictTotal.WithLabelValues(kind).Inc()
	}
}

// IncReconcileMismatch counts a totals mismatch against the backend.
func IncReconcileMismatch() {
	if reconcileMismatchTotal != nil {
		reconcileMismatchTotal.Inc()
	}
}

// IncCacheRequest counts a snapshot cache lookup.
func IncCacheRequest(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if cacheRequestsTotal != nil {
		cacheRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultError    = resultError
	ResultConflict = resultConflict

	SourceCache   = sourceCache
	SourceBackend = sourceBackend

	CacheHit   = cacheHit
	CacheMiss  = cacheMiss
	CacheError = cacheError
)
