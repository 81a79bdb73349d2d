package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, extractors, and delivery
// channels return these (optionally wrapped) so services can translate them
// into domain errors or check-in results.
//
// - ErrNotFound: no OTP record or no stored selfie for a phone
// - ErrConflict: a concurrent writer changed the record mid-transaction
// - ErrUnavailable: extractor, delivery channel, or store temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
