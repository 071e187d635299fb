// Package events publishes meeting domain events for notification delivery.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Type is the routing key of an event.
type Type string

const (
	MeetingStarted         Type = "meeting.started"
	MeetingCompleted       Type = "meeting.completed"
	MeetingCancelled       Type = "meeting.cancelled"
	RemotePaymentSubmitted Type = "remote_payment.submitted"
	RemotePaymentResolved  Type = "remote_payment.resolved"
)

// Event is a lightweight notification message. Consumers fetch full details
// through the API when they need them.
type Event struct {
	Type      Type   `json:"type"`
	GroupID   string `json:"group_id,omitempty"`
	MeetingID string `json:"meeting_id"`
	EntryID   string `json:"entry_id,omitempty"`
	MemberID  string `json:"member_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`

	// Status is the new meeting or verification status.
	Status string `json:"status,omitempty"`

	// Amount is a decimal string, empty when not applicable.
	Amount string `json:"amount,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates an event from JSON bytes
func FromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Publisher delivers events to the notification subsystem.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) error {
	slog.InfoContext(ctx, "Event (no broker configured)",
		"type", e.Type,
		"meeting_id", e.MeetingID,
		"entry_id", e.EntryID,
		"status", e.Status,
	)
	return nil
}
