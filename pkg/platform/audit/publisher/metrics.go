package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Tracked               prometheus.Counter
	Sampled               prometheus.Counter
	BufferDropped         prometheus.Counter
	CircuitBreakerDropped prometheus.Counter
	PersistFailures       prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
}

// NewMetrics registers audit metrics on reg (default registerer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Tracked: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_audit_tracked_total",
			Help: "Total number of audit events successfully persisted",
		}),
		Sampled: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_audit_sampled_total",
			Help: "Total number of operational audit events dropped due to sampling",
		}),
		BufferDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_audit_buffer_dropped_total",
			Help: "Total number of audit events dropped because the async buffer was full",
		}),
		CircuitBreakerDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_audit_circuit_breaker_dropped_total",
			Help: "Total number of audit events dropped due to circuit breaker",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "tripmate_audit_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) IncTracked() {
	if m == nil {
		return
	}
	m.Tracked.Inc()
}

func (m *Metrics) IncSampled() {
	if m == nil {
		return
	}
	m.Sampled.Inc()
}

func (m *Metrics) IncBufferDropped() {
	if m == nil {
		return
	}
	m.BufferDropped.Inc()
}

func (m *Metrics) IncCircuitBreakerDropped() {
	if m == nil {
		return
	}
	m.CircuitBreakerDropped.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
