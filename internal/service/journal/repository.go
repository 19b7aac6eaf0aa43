package journal

import (
	"context"
	"time"

	"github.com/ignite/sequencer/internal/domain"
)

// Repository defines the data access contract for the journal. Note the
// absence of any mutation beyond Append is a design invariant.
type Repository interface {
	// Append persists one entry. It never partially applies.
	Append(ctx context.Context, e *domain.JournalEntry) error

	// List returns entries matching the filter, newest first, plus the
	// total count before pagination.
	List(ctx context.Context, f ListFilter) ([]domain.JournalEntry, int, error)
}

// ListFilter controls filtering and pagination for journal queries.
type ListFilter struct {
	Action string
	Email  string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
