package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the OTP lifecycle.
type Metrics struct {
	Issued           prometheus.Counter
	DeliveryFailures *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	Swept            prometheus.Counter
}

// New registers OTP metrics on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_otp_issued_total",
			Help: "Total one-time codes issued",
		}),
		DeliveryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_otp_delivery_failures_total",
			Help: "OTP deliveries that failed by channel",
		}, []string{"channel"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_otp_verifications_total",
			Help: "OTP verification attempts by outcome",
		}, []string{"outcome"}), // valid, invalid, expired, not_found
		Swept: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_otp_swept_total",
			Help: "Expired OTP records removed by the sweeper",
		}),
	}
}

func (m *Metrics) IncIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

func (m *Metrics) IncDeliveryFailure(channel string) {
	if m != nil {
		m.DeliveryFailures.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) IncVerification(outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) AddSwept(n int) {
	if m != nil && n > 0 {
		m.Swept.Add(float64(n))
	}
}
