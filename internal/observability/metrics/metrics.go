package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "condo_"

	resultSuccess  = "success"
	resultError    = "error"
	resultRejected = "rejected"
	resultAborted  = "aborted"
	resultPartial  = "partial"

	rowImported = "imported"
	rowFailed   = "failed"
	rowSkipped  = "skipped"
)

var (
	registerOnce sync.Once

	importRunsTotal    *prometheus.CounterVec
	importRunLatency   *prometheus.HistogramVec
	importRowsTotal    *prometheus.CounterVec
	compensationsTotal *prometheus.CounterVec
	rejectionsTotal    *prometheus.CounterVec
	auditFailuresTotal prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		importRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "debtor_import_runs_total",
				Help: "Total debtor import runs by result",
			},
			[]string{"result"},
		)
		importRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "debtor_import_run_latency_seconds",
				Help:    "Debtor import run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		importRowsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "debtor_import_rows_total",
				Help: "Total debtor import rows by outcome",
			},
			[]string{"outcome"},
		)
		compensationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "debtor_import_compensations_total",
				Help: "Total compensation passes by result",
			},
			[]string{"result"},
		)
		rejectionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "debtor_import_validation_rejections_total",
				Help: "Total batches rejected before mutation by reason",
			},
			[]string{"reason"},
		)
		auditFailuresTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "debtor_import_audit_failures_total",
				Help: "Total audit records that could not be written",
			},
		)

		prometheus.MustRegister(
			importRunsTotal,
			importRunLatency,
			importRowsTotal,
			compensationsTotal,
			rejectionsTotal,
			auditFailuresTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveImportRun records run duration and result.
func ObserveImportRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if importRunsTotal != nil {
		importRunsTotal.WithLabelValues(result).Inc()
	}
	if importRunLatency != nil {
		importRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddImportRows increments row counters by outcome.
func AddImportRows(outcome string, count int) {
	if count <= 0 {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	if importRowsTotal != nil {
		importRowsTotal.WithLabelValues(outcome).Add(float64(count))
	}
}

// IncCompensation increments compensation pass counter.
func IncCompensation(result string) {
	if result == "" {
		result = resultSuccess
	}
	if compensationsTotal != nil {
		compensationsTotal.WithLabelValues(result).Inc()
	}
}

// IncValidationRejection increments pre-mutation rejection counter.
func IncValidationRejection(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if rejectionsTotal != nil {
		rejectionsTotal.WithLabelValues(reason).Inc()
	}
}

// IncAuditFailure increments the swallowed audit failure counter.
func IncAuditFailure() {
	if auditFailuresTotal != nil {
		auditFailuresTotal.Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultError    = resultError
	ResultRejected = resultRejected
	ResultAborted  = resultAborted
	ResultPartial  = resultPartial

	RowImported = rowImported
	RowFailed   = rowFailed
	RowSkipped  = rowSkipped
)
