package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wind_forcing"

// Metrics holds the Prometheus counters, histograms, and gauges for a forcing run.
type Metrics struct {
	StepsCompleted prometheus.Counter
	StepErrors     prometheus.Counter
	StepsPublished prometheus.Counter
	RunRunning     prometheus.Gauge
	StepDuration   prometheus.Histogram

	// Interpolation metrics.
	PointsFilled       *prometheus.CounterVec // labels: channel={vx,vy,pressure}
	TriangulationCache *prometheus.CounterVec // labels: result={hit,miss}
	SnapshotsLoaded    prometheus.Gauge
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.StepsCompleted,
		m.StepErrors,
		m.StepsPublished,
		m.RunRunning,
		m.StepDuration,
		m.PointsFilled,
		m.TriangulationCache,
		m.SnapshotsLoaded,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StepsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_completed_total",
			Help:      "Total forcing steps written.",
		}),
		StepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_errors_total",
			Help:      "Total forcing steps that failed.",
		}),
		StepsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_published_total",
			Help:      "Total step events published to Kafka.",
		}),
		RunRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_running",
			Help:      "1 while a run is stepping, 0 otherwise.",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of one query-and-write step.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PointsFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_filled_total",
			Help:      "Target points outside a snapshot hull that received the fill value.",
		}, []string{"channel"}),
		TriangulationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triangulation_cache_total",
			Help:      "Triangulation cache lookups by result.",
		}, []string{"result"}),
		SnapshotsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots_loaded",
			Help:      "Snapshots in the loaded series.",
		}),
	}
}
