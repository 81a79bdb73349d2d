package models

import "time"

// EndpointClass groups endpoints that share a per-IP budget.
type EndpointClass string

const (
	// ClassOTP covers /send_otp and /verify_otp. Tight, since a six digit code
	// is cheap to guess without a limit.
	ClassOTP EndpointClass = "otp"
	// ClassCheckin covers /checkin, which calls the embedding model twice.
	ClassCheckin EndpointClass = "checkin"
)

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits are used for classes without explicit configuration.
var DefaultLimits = map[EndpointClass]Limit{
	ClassOTP:     {Requests: 10, Window: time.Minute},
	ClassCheckin: {Requests: 20, Window: time.Minute},
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// Key builds the bucket key for an IP within a class.
func Key(class EndpointClass, ip string) string {
	return "rl:" + string(class) + ":" + ip
}
