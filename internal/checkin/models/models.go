package models

import "time"

// Trip is issued once per successful check-in. A phone may hold many.
type Trip struct {
	ID          int64
	Phone       string
	TripNumber  int
	CheckinTime time.Time
}

// Request is one check-in attempt as received from the transport.
type Request struct {
	Phone     string
	Latitude  float64
	Longitude float64
	Selfie    []byte
}

// ResultKind tags the single outcome of a check-in.
type ResultKind string

const (
	KindLocationInvalid ResultKind = "location_invalid"
	KindFaceMismatch    ResultKind = "face_mismatch"
	KindSuccess         ResultKind = "success"
	KindError           ResultKind = "error"
)

const (
	MessageOutsideGeofence = "Outside allowed geofence"
	MessageFailure         = "Error during check-in"

	ReasonNoLiveFace     = "no face in uploaded selfie"
	ReasonNoStoredSelfie = "no stored selfie"
	ReasonNoStoredFace   = "no face in stored selfie"
	ReasonBelowThreshold = "similarity below threshold"
)

// Result is the outcome of a check-in. TripNumber is set only on success.
type Result struct {
	Kind       ResultKind
	Message    string
	TripNumber int
}

func LocationInvalid() Result {
	return Result{Kind: KindLocationInvalid, Message: MessageOutsideGeofence}
}

func FaceMismatch(reason string) Result {
	return Result{Kind: KindFaceMismatch, Message: reason}
}

func Success(phone string, tripNumber int) Result {
	return Result{Kind: KindSuccess, Message: "Check-in successful for " + phone, TripNumber: tripNumber}
}

func Failure() Result {
	return Result{Kind: KindError, Message: MessageFailure}
}

func (r Result) Succeeded() bool {
	return r.Kind == KindSuccess
}
