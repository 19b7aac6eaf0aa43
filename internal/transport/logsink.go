package transport

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ignite/sequencer/internal/pkg/logger"
)

// LogTransport logs messages instead of sending them. Used for local
// development and for sequences that must never hit a real provider.
type LogTransport struct {
	counter atomic.Uint64
}

// NewLogTransport creates a transport that only logs.
func NewLogTransport() *LogTransport { return &LogTransport{} }

func (t *LogTransport) Send(_ context.Context, msg *Message) (*Result, error) {
	id := fmt.Sprintf("log-%d", t.counter.Add(1))
	logger.Info("would send email",
		"email", msg.Email,
		"sequence_id", msg.SequenceID,
		"step", fmt.Sprintf("%d", msg.Step),
		"subject", msg.Subject,
		"message_id", id,
	)
	return &Result{MessageID: id, SentAt: time.Now().UTC()}, nil
}
