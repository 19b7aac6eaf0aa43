// Package transport abstracts the outbound mail provider behind a single
// Send call so the dispatcher stays provider-agnostic.
package transport

import (
	"context"
	"time"
)

// Message is one rendered email ready for delivery.
type Message struct {
	SequenceID  string
	Email       string
	Step        int
	FromName    string
	FromEmail   string
	ReplyTo     string
	Subject     string
	Body        string
	TrackingTag string
}

// Result reports the provider's accept/reject decision for one message.
type Result struct {
	MessageID string
	SentAt    time.Time
}

// Transport delivers a single message. Implementations return an error
// when the provider rejected or could not be reached; the dispatcher
// records that on the step rather than retrying inline.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}
