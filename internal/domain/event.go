package domain

import "time"

// EventType enumerates delivery-feedback and dispatch outcomes.
type EventType string

const (
	EventSent              EventType = "sent"
	EventDelivered         EventType = "delivered"
	EventOpened            EventType = "opened"
	EventClicked           EventType = "clicked"
	EventSoftBounce        EventType = "soft_bounce"
	EventHardBounce        EventType = "hard_bounce"
	EventComplained        EventType = "complained"
	EventSkippedSuppressed EventType = "skipped_suppressed"
	EventSkippedGeneric    EventType = "skipped_generic"
	EventError             EventType = "error"
)

// Event is one immutable entry in a sequence's delivery log. Metrics are
// always computed from this log, never from separately mutated counters.
type Event struct {
	ID         string    `json:"id" db:"id"`
	SequenceID string    `json:"sequence_id" db:"sequence_id"`
	Email      string    `json:"email" db:"email"`
	Step       int       `json:"step" db:"step"`
	Type       EventType `json:"type" db:"type"`
	MessageID  string    `json:"message_id,omitempty" db:"message_id"`
	Details    string    `json:"details,omitempty" db:"details"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}
