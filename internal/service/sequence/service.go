package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/service/template"
)

// Service implements the sequence engine. It coordinates the repository,
// the prospect directory, the suppression list, the journal, and the
// event log. Safe for concurrent use if the repository is.
type Service struct {
	repo         Repository
	directory    Directory
	suppressions Suppressions
	journal      Recorder
	events       EventSink
	registry     *template.Registry
}

// NewService creates a sequence engine.
func NewService(repo Repository, directory Directory, suppressions Suppressions, journal Recorder, events EventSink, registry *template.Registry) *Service {
	return &Service{
		repo:         repo,
		directory:    directory,
		suppressions: suppressions,
		journal:      journal,
		events:       events,
		registry:     registry,
	}
}

// StartConfig selects the target set for a launch. Test mode requires an
// explicit address list; live mode targets all eligible prospects.
type StartConfig struct {
	Mode       domain.SequenceMode `json:"mode"`
	TestEmails []string            `json:"test_emails,omitempty"`
}

// StartResult reports launch counts. Per-address validation problems in
// test mode are reported here, not treated as fatal.
type StartResult struct {
	SequenceID        string   `json:"sequence_id"`
	Enrolled          int      `json:"enrolled_count"`
	SkippedSuppressed int      `json:"skipped_suppressed"`
	SkippedGeneric    int      `json:"skipped_generic"`
	ValidationErrors  []string `json:"validation_errors,omitempty"`
}

// Start launches a sequence run. An empty effective target set is not an
// error: the result simply reports zero enrollments. Test mode with no
// test emails is a caller error.
func (s *Service) Start(ctx context.Context, cfg StartConfig) (*StartResult, error) {
	result := &StartResult{}

	var prospects []domain.Prospect
	switch cfg.Mode {
	case domain.ModeTest:
		if len(cfg.TestEmails) == 0 {
			return nil, ErrNoTestEmails
		}
		for _, addr := range cfg.TestEmails {
			email := domain.NormalizeEmail(addr)
			if err := domain.ValidateEmail(email); err != nil {
				result.ValidationErrors = append(result.ValidationErrors, err.Error())
				continue
			}
			p := domain.Prospect{Email: email}
			if known, err := s.directory.Find(ctx, email); err == nil && known != nil {
				p.FirstName = known.FirstName
			}
			prospects = append(prospects, p)
		}
	case domain.ModeLive:
		var err error
		prospects, err = s.directory.ListEligible(ctx)
		if err != nil {
			return nil, fmt.Errorf("list eligible prospects: %w", err)
		}
	default:
		return nil, ErrBadMode
	}

	seq := &domain.Sequence{
		ID:        uuid.New().String(),
		Mode:      cfg.Mode,
		Status:    domain.SequenceActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateSequence(ctx, seq); err != nil {
		return nil, fmt.Errorf("create sequence: %w", err)
	}
	result.SequenceID = seq.ID

	now := time.Now().UTC()
	seen := make(map[string]bool)
	for _, p := range prospects {
		email := domain.NormalizeEmail(p.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		if err := s.enroll(ctx, seq.ID, email, p.FirstName, now, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// enroll creates one enrollment, gating on suppression and the generic
// address policy. Gated prospects are recorded with terminal skip states
// so they are never handed to the dispatcher.
func (s *Service) enroll(ctx context.Context, sequenceID, email, firstName string, now time.Time, result *StartResult) error {
	// Fail-closed: if the suppression check cannot be performed, the
	// launch fails rather than enrolling under uncertain status.
	suppressed, err := s.suppressions.IsSuppressed(ctx, email)
	if err != nil {
		return fmt.Errorf("suppression check for enrollment: %w", err)
	}

	var gate domain.StepStatus
	switch {
	case suppressed:
		gate = domain.StepSkippedSuppressed
		result.SkippedSuppressed++
	case domain.IsGenericAddress(email):
		gate = domain.StepSkippedGeneric
		result.SkippedGeneric++
	default:
		result.Enrolled++
	}

	enrollment := &domain.Enrollment{
		SequenceID: sequenceID,
		Email:      email,
		FirstName:  firstName,
		EnrolledAt: now,
	}

	var steps []domain.StepState
	for _, tpl := range s.registry.Steps() {
		st := domain.StepState{
			SequenceID: sequenceID,
			Email:      email,
			Step:       tpl.Step,
			Status:     domain.StepScheduled,
			DueAt:      now.Add(time.Duration(tpl.DelayDays) * 24 * time.Hour),
			UpdatedAt:  now,
		}
		if gate != "" {
			st.Status = gate
		}
		steps = append(steps, st)
	}

	if err := s.repo.CreateEnrollment(ctx, enrollment, steps); err != nil {
		return fmt.Errorf("enroll %s: %w", email, err)
	}

	switch gate {
	case domain.StepSkippedSuppressed:
		s.recordSkipEvent(ctx, sequenceID, email, domain.EventSkippedSuppressed)
		if err := s.journal.Record(ctx, domain.ActionSkipSend, email, "enrollment gate: address suppressed", "sequencer"); err != nil {
			return err
		}
	case domain.StepSkippedGeneric:
		s.recordSkipEvent(ctx, sequenceID, email, domain.EventSkippedGeneric)
	}
	return nil
}

func (s *Service) recordSkipEvent(ctx context.Context, sequenceID, email string, typ domain.EventType) {
	_ = s.events.Record(ctx, &domain.Event{
		SequenceID: sequenceID,
		Email:      email,
		Step:       1,
		Type:       typ,
	})
}

// Stop marks a sequence stopped and cancels every pending/scheduled step.
// It is a hard barrier: once this returns, no dispatcher pass will send
// for this sequence. Stopping an already-stopped sequence is a no-op.
func (s *Service) Stop(ctx context.Context, id string) (int, error) {
	seq, err := s.repo.GetSequence(ctx, id)
	if err != nil {
		return 0, err
	}
	if seq.Status == domain.SequenceStopped {
		return 0, nil
	}

	// Status first, then cancellation: a dispatcher pass racing this call
	// either sees the stopped status or finds the steps cancelled.
	if err := s.repo.MarkStopped(ctx, id); err != nil {
		return 0, fmt.Errorf("stop sequence: %w", err)
	}
	cancelled, err := s.repo.CancelOpenSteps(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("cancel open steps: %w", err)
	}
	return cancelled, nil
}

// Get returns one sequence by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Sequence, error) {
	return s.repo.GetSequence(ctx, id)
}

// List returns all sequences, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Sequence, error) {
	return s.repo.ListSequences(ctx)
}

// ProspectDetail is one enrollment with its step states for the details
// projection.
type ProspectDetail struct {
	Email      string             `json:"email"`
	FirstName  string             `json:"first_name,omitempty"`
	EnrolledAt time.Time          `json:"enrolled_at"`
	Steps      []domain.StepState `json:"steps"`
}

// Details is the read-only projection of one sequence run.
type Details struct {
	Sequence  domain.Sequence  `json:"sequence"`
	Prospects []ProspectDetail `json:"prospects"`
}

// GetDetails combines enrollments and step states for one sequence.
func (s *Service) GetDetails(ctx context.Context, id string) (*Details, error) {
	seq, err := s.repo.GetSequence(ctx, id)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.repo.ListEnrollments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	states, err := s.repo.ListStepStates(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list step states: %w", err)
	}

	byEmail := make(map[string][]domain.StepState)
	for _, st := range states {
		byEmail[st.Email] = append(byEmail[st.Email], st)
	}

	details := &Details{Sequence: *seq}
	for _, e := range enrollments {
		details.Prospects = append(details.Prospects, ProspectDetail{
			Email:      e.Email,
			FirstName:  e.FirstName,
			EnrolledAt: e.EnrolledAt,
			Steps:      byEmail[e.Email],
		})
	}
	return details, nil
}
