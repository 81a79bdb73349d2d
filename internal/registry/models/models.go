package models

import "time"

// Selfie is a registered reference photo for a phone. The most recent one
// per phone is the one check-ins compare against.
type Selfie struct {
	ID        int64
	Phone     string
	Image     []byte
	CreatedAt time.Time
}

// Registration is the image-free projection used by the diagnostic listing.
type Registration struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone_number"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxImageBytes bounds stored and uploaded selfies.
const MaxImageBytes = 8 << 20
