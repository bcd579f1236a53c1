package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/malphas-lang/nullflow/internal/flow"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	Bodies            prometheus.Counter
	Diagnostics       *prometheus.CounterVec
	LoopWidenings     prometheus.Counter
	InvariantFailures prometheus.Counter
	Slots             prometheus.Histogram
	DagNodes          prometheus.Histogram
	Duration          prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Bodies: f.NewCounter(prometheus.CounterOpts{
			Name: "nullflow_bodies_analyzed_total",
			Help: "Method bodies analyzed",
		}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nullflow_diagnostics_total",
			Help: "Diagnostics reported, by code",
		}, []string{"code"}),
		LoopWidenings: f.NewCounter(prometheus.CounterOpts{
			Name: "nullflow_loop_widenings_total",
			Help: "Slots widened to maybe-null at the loop iteration cap",
		}),
		InvariantFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "nullflow_invariant_failures_total",
			Help: "Bodies aborted by an internal invariant violation",
		}),
		Slots: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nullflow_slots_per_body",
			Help:    "Slots allocated per body",
			Buckets: []float64{1, 4, 16, 64, 256, 1024},
		}),
		DagNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nullflow_dag_nodes_per_body",
			Help:    "Decision DAG nodes built per body",
			Buckets: []float64{0, 8, 32, 128, 512, 2048},
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nullflow_body_duration_seconds",
			Help:    "Time to analyze one body",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
		}),
	}
}

func (m *Metrics) observe(res *flow.Result, took time.Duration) {
	m.Bodies.Inc()
	m.Duration.Observe(took.Seconds())
	m.LoopWidenings.Add(float64(res.Stats.LoopWidenings))
	m.Slots.Observe(float64(res.Stats.Slots))
	m.DagNodes.Observe(float64(res.Stats.DagNodes))
	for _, d := range res.Diagnostics {
		m.Diagnostics.WithLabelValues(string(d.Code)).Inc()
	}
}
