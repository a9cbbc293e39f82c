package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "air_quality"

// Metrics holds the Prometheus counters, histograms, and gauges for the cleaning
// pipeline and the evaluation API.
type Metrics struct {
	CleanRuns     prometheus.Counter
	CleanErrors   *prometheus.CounterVec   // labels: stage={load,repair,clip,extract}
	StageDuration *prometheus.HistogramVec // labels: stage
	RowsLoaded    prometheus.Histogram

	// Cleaned-series store.
	CacheLookups  *prometheus.CounterVec // labels: result={hit,miss,shared}
	CachedSources prometheus.Gauge
	Ready         prometheus.Gauge

	// Evaluation.
	Regressions     *prometheus.CounterVec   // labels: outcome={ok,error}
	RequestDuration *prometheus.HistogramVec // labels: route

	// Report sink.
	ReportsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics with reg. Command-line tools use it
// with a private registry they gather from directly.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CleanRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clean_runs_total",
			Help:      "Total cleaning passes started.",
		}),
		CleanErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clean_errors_total",
			Help:      "Cleaning failures by stage.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each cleaning stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),
		RowsLoaded: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rows_loaded",
			Help:      "Rows read per cleaning pass.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cleaned-series store lookups by result.",
		}, []string{"result"}),
		CachedSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_sources",
			Help:      "Number of cleaned series held in the store.",
		}),
		Ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "1 when the default station is cleaned and serving, 0 otherwise.",
		}),
		Regressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regressions_total",
			Help:      "Regression evaluations by outcome.",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "API request duration by route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      "Dashboard reports written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Dashboard reports that failed to publish.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CleanRuns,
		m.CleanErrors,
		m.StageDuration,
		m.RowsLoaded,
		m.CacheLookups,
		m.CachedSources,
		m.Ready,
		m.Regressions,
		m.RequestDuration,
		m.ReportsPublished,
		m.PublishErrors,
	}
}
