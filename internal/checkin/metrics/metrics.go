package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for check-in decisions.
type Metrics struct {
	Results          *prometheus.CounterVec
	Duration         prometheus.Histogram
	Similarity       prometheus.Histogram
	ExtractorLatency prometheus.Histogram
	Panics           prometheus.Counter
}

// New registers check-in metrics on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_checkin_results_total",
			Help: "Check-in attempts by result kind",
		}, []string{"result"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripmate_checkin_duration_seconds",
			Help:    "End-to-end check-in decision latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		Similarity: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripmate_checkin_similarity",
			Help:    "Cosine similarity between live and stored selfies",
			Buckets: prometheus.LinearBuckets(-0.2, 0.1, 13),
		}),
		ExtractorLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripmate_checkin_extractor_duration_seconds",
			Help:    "Time spent in a single embedding extraction",
			Buckets: prometheus.DefBuckets,
		}),
		Panics: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_checkin_panics_total",
			Help: "Check-ins that panicked and were converted to errors",
		}),
	}
}

func (m *Metrics) IncResult(kind string) {
	if m != nil {
		m.Results.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m != nil {
		m.Duration.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveSimilarity(sim float64) {
	if m != nil {
		m.Similarity.Observe(sim)
	}
}

func (m *Metrics) ObserveExtraction(d time.Duration) {
	if m != nil {
		m.ExtractorLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncPanics() {
	if m != nil {
		m.Panics.Inc()
	}
}
