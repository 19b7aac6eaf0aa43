package sequence

import (
	"context"
	"time"

	"github.com/ignite/sequencer/internal/domain"
)

// Repository defines the data access contract for sequences, enrollments,
// and per-step state.
type Repository interface {
	// CreateSequence persists a new sequence run.
	CreateSequence(ctx context.Context, s *domain.Sequence) error

	// GetSequence returns a sequence by id, or ErrNotFound.
	GetSequence(ctx context.Context, id string) (*domain.Sequence, error)

	// ListSequences returns all sequences, newest first, with enrollment
	// counts populated.
	ListSequences(ctx context.Context) ([]domain.Sequence, error)

	// MarkStopped transitions a sequence to stopped.
	MarkStopped(ctx context.Context, id string) error

	// CreateEnrollment persists an enrollment and its step states
	// atomically.
	CreateEnrollment(ctx context.Context, e *domain.Enrollment, steps []domain.StepState) error

	// CancelOpenSteps sets every pending/scheduled step of the sequence
	// to cancelled and returns how many were affected.
	CancelOpenSteps(ctx context.Context, sequenceID string) (int, error)

	// ListEnrollments returns all enrollments of a sequence.
	ListEnrollments(ctx context.Context, sequenceID string) ([]domain.Enrollment, error)

	// ListStepStates returns all step states of a sequence.
	ListStepStates(ctx context.Context, sequenceID string) ([]domain.StepState, error)

	// ClaimDueSteps atomically claims up to limit due steps across all
	// active sequences (scheduled → sending), skipping steps whose
	// predecessor is not yet terminal and rows claimed by other passes.
	// Only the caller that wins the claim may attempt the send.
	ClaimDueSteps(ctx context.Context, workerID string, now time.Time, limit int) ([]ClaimedStep, error)

	// CompleteStep moves a claimed step to a terminal status. It only
	// applies to rows still in sending state, so a terminal step never
	// regresses.
	CompleteStep(ctx context.Context, sequenceID, email string, step int, status domain.StepStatus, messageID, lastError string) error

	// ReleaseStep returns a claimed step to scheduled so a later pass can
	// retry it. Used when the suppression check itself fails (fail-closed).
	ReleaseStep(ctx context.Context, sequenceID, email string, step int) error
}

// ClaimedStep is a step state the dispatcher has won the claim on,
// joined with the enrollment fields rendering needs.
type ClaimedStep struct {
	domain.StepState
	FirstName string
}

// Directory is the sequencer's read-only view of the external prospect
// store. It never writes back.
type Directory interface {
	// ListEligible returns prospects with status new.
	ListEligible(ctx context.Context) ([]domain.Prospect, error)

	// Find returns the prospect for an email, or nil if unknown.
	Find(ctx context.Context, email string) (*domain.Prospect, error)
}

// Suppressions is the slice of the suppression service the engine needs.
type Suppressions interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

// Recorder appends compliance journal entries.
type Recorder interface {
	Record(ctx context.Context, action domain.JournalAction, email, details, actor string) error
}

// EventSink appends delivery events.
type EventSink interface {
	Record(ctx context.Context, e *domain.Event) error
}
