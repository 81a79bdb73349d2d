package models

import (
	"strings"
	"time"

	dErrors "tripmate/pkg/domain-errors"
)

// Record is the single live one-time code for a phone.
type Record struct {
	Phone    string    `json:"phone"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// IsExpired reports whether the record is older than ttl at now. A record
// exactly ttl old is still valid.
func (r Record) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.IssuedAt) > ttl
}

// Outcome is the result of a verification attempt.
type Outcome string

const (
	OutcomeValid    Outcome = "valid"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeExpired  Outcome = "expired"
	OutcomeNotFound Outcome = "not_found"
)

// Action tells a store what to do with the record after an atomic update.
type Action int

const (
	ActionKeep Action = iota
	ActionDelete
)

// ValidatePhone accepts 7 to 15 digits with an optional leading '+'.
func ValidatePhone(phone string) error {
	p := strings.TrimPrefix(phone, "+")
	if len(p) < 7 || len(p) > 15 {
		return dErrors.New(dErrors.CodeValidation, "phone must contain 7 to 15 digits")
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return dErrors.New(dErrors.CodeValidation, "phone must contain only digits")
		}
	}
	return nil
}
