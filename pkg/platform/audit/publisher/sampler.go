package publisher

import (
	"math/rand/v2"

	"tripmate/pkg/platform/audit"
)

// Sampler thins out operations-category events (OTP issued and verified,
// check-in faults). Compliance and security events are always kept.
type Sampler struct {
	rate  float64
	float func() float64
}

// NewSampler keeps roughly rate of operations events. rate is clamped to [0, 1].
func NewSampler(rate float64) *Sampler {
	return &Sampler{rate: min(max(rate, 0), 1), float: rand.Float64}
}

// Keep reports whether event should be persisted.
func (s *Sampler) Keep(event audit.Event) bool {
	if event.Category != audit.CategoryOperations || s.rate >= 1 {
		return true
	}
	return s.float() < s.rate
}
