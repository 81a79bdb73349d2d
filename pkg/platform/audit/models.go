package audit

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers trip issuance, the record of who checked in where.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers rejected OTPs and rejected check-ins.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Phones are never
// stored in clear; PhoneHash carries a keyed digest instead.
type Event struct {
	ID         string
	Category   EventCategory
	Timestamp  time.Time
	Action     string
	PhoneHash  string
	Decision   string
	Reason     string
	RequestID  string
	ClientIP   string
	Device     string
	TripNumber int
}

type AuditEvent string

const (
	EventOTPIssued         AuditEvent = "otp_issued"
	EventOTPDeliveryFailed AuditEvent = "otp_delivery_failed"
	EventOTPVerified       AuditEvent = "otp_verified"
	EventOTPRejected       AuditEvent = "otp_rejected"

	EventCheckinSucceeded AuditEvent = "checkin_succeeded"
	EventCheckinRejected  AuditEvent = "checkin_rejected"
	EventCheckinFailed    AuditEvent = "checkin_failed"

	EventSelfieRegistered AuditEvent = "selfie_registered"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCheckinSucceeded: CategoryCompliance,
	EventSelfieRegistered: CategoryCompliance,

	EventOTPRejected:       CategorySecurity,
	EventCheckinRejected:   CategorySecurity,
	EventOTPDeliveryFailed: CategorySecurity,

	EventOTPIssued:     CategoryOperations,
	EventOTPVerified:   CategoryOperations,
	EventCheckinFailed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, event Event) error

func (f StoreFunc) Append(ctx context.Context, event Event) error { return f(ctx, event) }

// PhoneHasher derives a stable pseudonymous identifier for a phone number.
type PhoneHasher struct {
	key []byte
}

// NewPhoneHasher returns a hasher keyed with key. blake2b accepts keys up to
// 64 bytes; an empty key yields an unkeyed digest.
func NewPhoneHasher(key []byte) (*PhoneHasher, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("phone hash key longer than %d bytes", blake2b.Size)
	}
	return &PhoneHasher{key: key}, nil
}

// Hash returns the hex blake2b-256 digest of the normalized phone.
func (h *PhoneHasher) Hash(phone string) string {
	normalized := strings.TrimSpace(phone)
	if normalized == "" {
		return ""
	}
	if h == nil || len(h.key) == 0 {
		sum := blake2b.Sum256([]byte(normalized))
		return hex.EncodeToString(sum[:])
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		sum := blake2b.Sum256([]byte(normalized))
		return hex.EncodeToString(sum[:])
	}
	_, _ = mac.Write([]byte(normalized))
	return hex.EncodeToString(mac.Sum(nil))
}

// DeviceSummary reduces a User-Agent to "browser/os" for audit records,
// e.g. "Chrome/Android" or "bot".
func DeviceSummary(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	os := ua.OS()
	switch {
	case browser == "" && os == "":
		return "unknown"
	case os == "":
		return browser
	case browser == "":
		return os
	}
	summary := browser + "/" + os
	if ua.Mobile() {
		summary += " (mobile)"
	}
	return summary
}
