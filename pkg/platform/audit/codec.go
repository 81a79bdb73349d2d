package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireEvent is the JSON shape shared by the outbox table and the Kafka topic.
type wireEvent struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	PhoneHash  string `json:"phone_hash,omitempty"`
	Decision   string `json:"decision,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
	Device     string `json:"device,omitempty"`
	TripNumber int    `json:"trip_number,omitempty"`
}

// MarshalEvent encodes event for transport. An empty category is derived
// from the action.
func MarshalEvent(event Event) ([]byte, error) {
	category := event.Category
	if category == "" {
		category = AuditEvent(event.Action).Category()
	}
	body, err := json.Marshal(wireEvent{
		ID:         event.ID,
		Category:   string(category),
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:     event.Action,
		PhoneHash:  event.PhoneHash,
		Decision:   event.Decision,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		ClientIP:   event.ClientIP,
		Device:     event.Device,
		TripNumber: event.TripNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit event: %w", err)
	}
	return body, nil
}

// UnmarshalEvent decodes a payload produced by MarshalEvent.
func UnmarshalEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("unmarshal audit event: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return Event{}, fmt.Errorf("parse audit timestamp: %w", err)
	}
	return Event{
		ID:         w.ID,
		Category:   EventCategory(w.Category),
		Timestamp:  ts,
		Action:     w.Action,
		PhoneHash:  w.PhoneHash,
		Decision:   w.Decision,
		Reason:     w.Reason,
		RequestID:  w.RequestID,
		ClientIP:   w.ClientIP,
		Device:     w.Device,
		TripNumber: w.TripNumber,
	}, nil
}
