package suppression

import (
	"context"
	"time"

	"github.com/ignite/sequencer/internal/domain"
)

// Repository defines the data access contract for the suppression list.
// Implementations must provide read-after-write consistency: an Upsert or
// Remove followed by IsSuppressed on the same store observes the latest
// state. Dispatch correctness depends on this.
type Repository interface {
	// IsSuppressed returns true if the normalized email is on the list.
	IsSuppressed(ctx context.Context, email string) (bool, error)

	// Upsert inserts an entry or, if the email is already suppressed,
	// updates its metadata in place. Returns true if a new entry was
	// created. There is never more than one entry per email.
	Upsert(ctx context.Context, s *domain.Suppression) (bool, error)

	// Remove deletes an entry. Returns ErrNotFound if it doesn't exist.
	Remove(ctx context.Context, email string) error

	// List returns entries matching the filter plus the total count.
	List(ctx context.Context, f ListFilter) ([]domain.Suppression, int, error)

	// All streams every entry ordered by email (for export).
	All(ctx context.Context) ([]domain.Suppression, error)
}

// ListFilter controls filtering and pagination for suppression lists.
type ListFilter struct {
	Search string // substring match on email
	Reason string
	Source string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Recorder is the slice of the journal service the suppression layer
// needs. Defined here so the dependency points at an interface, not at
// the journal package's concrete type.
type Recorder interface {
	Record(ctx context.Context, action domain.JournalAction, email, details, actor string) error
}
