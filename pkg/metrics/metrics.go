package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application metrics.
type Metrics struct {
	// Ingest
	RecordsImported prometheus.Counter
	LinesSkipped    prometheus.Counter
	ImportLatency   prometheus.Histogram

	// Derivation
	SeriesRebuilds  prometheus.Counter
	RebuildLatency  prometheus.Histogram
	SeriesCacheHits *prometheus.CounterVec

	// Database
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// New creates and registers all application metrics.
func New(namespace, subsystem string) *Metrics {
	return &Metrics{
		RecordsImported: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_imported_total",
			Help:      "Total number of measurement records imported",
		}),
		LinesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "import_lines_skipped_total",
			Help:      "Total number of malformed or incomplete NDJSON lines skipped",
		}),
		ImportLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "import_duration_seconds",
			Help:      "Time spent parsing and persisting an import",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		SeriesRebuilds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "series_rebuilds_total",
			Help:      "Total number of wholesale patient-series recomputations",
		}),
		RebuildLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "series_rebuild_duration_seconds",
			Help:      "Time spent rebuilding the derived series for a dataset",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		SeriesCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "series_cache_requests_total",
			Help:      "Derived-series cache lookups by outcome",
		}, []string{"outcome"}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
