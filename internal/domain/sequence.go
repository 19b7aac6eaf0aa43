package domain

import "time"

// SequenceMode selects the target set at launch.
type SequenceMode string

const (
	ModeLive SequenceMode = "live"
	ModeTest SequenceMode = "test"
)

// SequenceStatus is the lifecycle state of a sequence run.
type SequenceStatus string

const (
	SequenceActive  SequenceStatus = "active"
	SequenceStopped SequenceStatus = "stopped"
)

// Sequence is one named campaign run. It is created once at launch and
// never re-targeted; stopping cancels all not-yet-sent steps.
type Sequence struct {
	ID            string         `json:"id" db:"id"`
	Mode          SequenceMode   `json:"mode" db:"mode"`
	Status        SequenceStatus `json:"status" db:"status"`
	EnrolledCount int            `json:"enrolled_count" db:"enrolled_count"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// Enrollment is one prospect's participation record in one sequence,
// keyed by (sequence_id, email).
type Enrollment struct {
	SequenceID string    `json:"sequence_id" db:"sequence_id"`
	Email      string    `json:"email" db:"email"`
	FirstName  string    `json:"first_name" db:"first_name"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"`
}

// StepStatus is the state of one step within one enrollment.
type StepStatus string

const (
	StepPending           StepStatus = "pending"
	StepScheduled         StepStatus = "scheduled"
	StepSending           StepStatus = "sending" // claimed by a dispatcher pass
	StepSent              StepStatus = "sent"
	StepSkippedSuppressed StepStatus = "skipped_suppressed"
	StepSkippedGeneric    StepStatus = "skipped_generic"
	StepCancelled         StepStatus = "cancelled"
	StepError             StepStatus = "error"
)

// Terminal reports whether the status can never transition again. A step
// never regresses once terminal.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepSent, StepSkippedSuppressed, StepSkippedGeneric, StepCancelled, StepError:
		return true
	}
	return false
}

// StepState tracks one step of one enrollment. Step offsets are anchored
// at enrollment time: due_at = enrolled_at + delay_days for the step.
type StepState struct {
	SequenceID string     `json:"sequence_id" db:"sequence_id"`
	Email      string     `json:"email" db:"email"`
	Step       int        `json:"step" db:"step"`
	Status     StepStatus `json:"status" db:"status"`
	DueAt      time.Time  `json:"due_at" db:"due_at"`
	MessageID  string     `json:"message_id,omitempty" db:"message_id"`
	LastError  string     `json:"last_error,omitempty" db:"last_error"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
