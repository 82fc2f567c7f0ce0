package metrics

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "duizhang_"

	resultSuccess = "success"
	resultError   = "error"
	resultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	importTotal   *prometheus.CounterVec
	importRecords *prometheus.CounterVec

	validationRuns     prometheus.Counter
	validationFindings *prometheus.CounterVec

	recordsReconciled prometheus.Counter

	billExportTotal   *prometheus.CounterVec
	billExportLatency *prometheus.HistogramVec
	billCacheHits     prometheus.Counter
)

// Init registers the service metrics and DB-backed gauges. Only the first
// call has an effect.
func Init(db *sql.DB, logger *slog.Logger) {
	registerOnce.Do(func() {
		importTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_total",
				Help: "Total file imports by kind, format and result",
			},
			[]string{"kind", "format", "result"},
		)
		importRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_records_total",
				Help: "Records stored by imports, by kind",
			},
			[]string{"kind"},
		)
		validationRuns = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_runs_total",
				Help: "Total validation runs",
			},
		)
		validationFindings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_findings_total",
				Help: "Validation findings by severity",
			},
			[]string{"severity"},
		)
		recordsReconciled = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_reconciled_total",
				Help: "Settlement records passed through the calculator before storage",
			},
		)
		billExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bill_export_total",
				Help: "Total bill exports by format and result",
			},
			[]string{"format", "result"},
		)
		billExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "bill_export_latency_seconds",
				Help:    "Bill render latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		billCacheHits = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "bill_cache_hits_total",
				Help: "Bill exports served from the render cache",
			},
		)

		prometheus.MustRegister(
			importTotal,
			importRecords,
			validationRuns,
			validationFindings,
			recordsReconciled,
			billExportTotal,
			billExportLatency,
			billCacheHits,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

func registerDBMetrics(db *sql.DB, logger *slog.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "settlement_records",
			Help: "Stored settlement records",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM settlement_records")
		},
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "transactions",
			Help: "Stored bookkeeping transactions",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM transactions")
		},
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "open_findings",
			Help: "Findings of the latest validation run",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM findings")
		},
	))
}

func queryCount(db *sql.DB, logger *slog.Logger, query string) float64 {
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Warn("metrics query failed", "error", err)
		}
		return 0
	}
	return float64(count)
}

// ObserveImport records the outcome of one file import.
func ObserveImport(kind, format, result string, records int) {
	if result == "" {
		result = resultSuccess
	}
	if importTotal != nil {
		importTotal.WithLabelValues(kind, format, result).Inc()
	}
	if importRecords != nil && records > 0 {
		importRecords.WithLabelValues(kind).Add(float64(records))
	}
}

// ObserveValidation records one validator pass.
func ObserveValidation(errors, warnings int) {
	if validationRuns != nil {
		validationRuns.Inc()
	}
	if validationFindings != nil {
		validationFindings.WithLabelValues("error").Add(float64(errors))
		validationFindings.WithLabelValues("warning").Add(float64(warnings))
	}
}

func AddReconciled(n int) {
	if recordsReconciled != nil && n > 0 {
		recordsReconciled.Add(float64(n))
	}
}

// ObserveBillExport records bill render latency and result.
func ObserveBillExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if billExportTotal != nil {
		billExportTotal.WithLabelValues(format, result).Inc()
	}
	if billExportLatency != nil {
		billExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

func IncBillCacheHit() {
	if billCacheHits != nil {
		billCacheHits.Inc()
	}
}

const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultSkipped = resultSkipped
)
