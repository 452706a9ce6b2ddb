package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RecordsFetched     prometheus.Counter
	ValidationFailures prometheus.Counter
	ArchiveFailures    prometheus.Counter
	WebhookFailures    prometheus.Counter
	CycleRunning       prometheus.Gauge

	// RowsUpserted is labeled by destination table.
	RowsUpserted *prometheus.CounterVec

	BatchSize     prometheus.Histogram
	CycleDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_etl",
			Name:      "records_fetched_total",
			Help:      "Total NEO records fetched from the upstream feed.",
		}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_etl",
			Name:      "validation_failures_total",
			Help:      "Total feed records dropped for failing normalization.",
		}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_etl",
			Name:      "archive_failures_total",
			Help:      "Total failed attempts to archive a raw batch.",
		}),
		WebhookFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_etl",
			Name:      "webhook_failures_total",
			Help:      "Total failed webhook notifications.",
		}),
		CycleRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_etl",
			Name:      "cycle_running",
			Help:      "1 while a processing cycle is in flight, 0 otherwise.",
		}),
		RowsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo_etl",
			Name:      "rows_upserted_total",
			Help:      "Rows written by table.",
		}, []string{"table"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neo_etl",
			Name:      "batch_size",
			Help:      "Number of records fetched per cycle.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neo_etl",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-archive-upsert cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	prometheus.MustRegister(
		m.RecordsFetched,
		m.ValidationFailures,
		m.ArchiveFailures,
		m.WebhookFailures,
		m.CycleRunning,
		m.RowsUpserted,
		m.BatchSize,
		m.CycleDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsFetched:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "neo_etl", Name: "records_fetched_total"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "neo_etl", Name: "validation_failures_total"}),
		ArchiveFailures:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "neo_etl", Name: "archive_failures_total"}),
		WebhookFailures:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "neo_etl", Name: "webhook_failures_total"}),
		CycleRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "neo_etl", Name: "cycle_running"}),
		RowsUpserted:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "neo_etl", Name: "rows_upserted_total"}, []string{"table"}),
		BatchSize:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "neo_etl", Name: "batch_size"}),
		CycleDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "neo_etl", Name: "cycle_duration_seconds"}),
	}
}
