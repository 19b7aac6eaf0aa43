package events

import (
	"context"

	"github.com/ignite/sequencer/internal/domain"
)

// Repository is the append-only event store.
type Repository interface {
	// Append persists one event.
	Append(ctx context.Context, e *domain.Event) error

	// ListBySequence returns all events of one sequence in occurrence
	// order.
	ListBySequence(ctx context.Context, sequenceID string) ([]domain.Event, error)
}

// Suppressor is the slice of the suppression service the feedback
// handler needs.
type Suppressor interface {
	Add(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, notes, actor string) (*domain.Suppression, error)
}
