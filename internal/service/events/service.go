package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/pkg/logger"
)

// Service records delivery events and projects per-sequence metrics.
type Service struct {
	repo       Repository
	suppressor Suppressor
}

// NewService creates an event aggregator.
func NewService(repo Repository, suppressor Suppressor) *Service {
	return &Service{repo: repo, suppressor: suppressor}
}

// Record appends one event, assigning id and timestamp when the caller
// left them empty.
func (s *Service) Record(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	e.Email = domain.NormalizeEmail(e.Email)
	if err := s.repo.Append(ctx, e); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// StepRollup is the per-step slice of a sequence's metrics.
type StepRollup struct {
	Step              int `json:"step"`
	Sent              int `json:"sent"`
	Delivered         int `json:"delivered"`
	Opened            int `json:"opened"`
	Clicked           int `json:"clicked"`
	SoftBounced       int `json:"soft_bounced"`
	HardBounced       int `json:"hard_bounced"`
	Complained        int `json:"complained"`
	SkippedSuppressed int `json:"skipped_suppressed"`
	SkippedGeneric    int `json:"skipped_generic"`
	Errors            int `json:"errors"`
}

// Rollup is a sequence's metrics, recomputed from the event log on every
// call.
type Rollup struct {
	SequenceID string       `json:"sequence_id"`
	Totals     StepRollup   `json:"totals"`
	Steps      []StepRollup `json:"steps"`
}

// MetricsFor projects the metrics of one sequence from its event log.
func (s *Service) MetricsFor(ctx context.Context, sequenceID string) (*Rollup, error) {
	evs, err := s.repo.ListBySequence(ctx, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	bySt := make(map[int]*StepRollup)
	rollup := &Rollup{SequenceID: sequenceID}
	for _, e := range evs {
		sr, ok := bySt[e.Step]
		if !ok {
			sr = &StepRollup{Step: e.Step}
			bySt[e.Step] = sr
		}
		for _, r := range []*StepRollup{sr, &rollup.Totals} {
			switch e.Type {
			case domain.EventSent:
				r.Sent++
			case domain.EventDelivered:
				r.Delivered++
			case domain.EventOpened:
				r.Opened++
			case domain.EventClicked:
				r.Clicked++
			case domain.EventSoftBounce:
				r.SoftBounced++
			case domain.EventHardBounce:
				r.HardBounced++
			case domain.EventComplained:
				r.Complained++
			case domain.EventSkippedSuppressed:
				r.SkippedSuppressed++
			case domain.EventSkippedGeneric:
				r.SkippedGeneric++
			case domain.EventError:
				r.Errors++
			}
		}
	}

	maxStep := 0
	for step := range bySt {
		if step > maxStep {
			maxStep = step
		}
	}
	for step := 1; step <= maxStep; step++ {
		if sr, ok := bySt[step]; ok {
			rollup.Steps = append(rollup.Steps, *sr)
		} else {
			rollup.Steps = append(rollup.Steps, StepRollup{Step: step})
		}
	}
	return rollup, nil
}

// Feedback is one delivery-feedback notification from the mail provider.
type Feedback struct {
	SequenceID string           `json:"sequence_id,omitempty"`
	Email      string           `json:"email"`
	Step       int              `json:"step,omitempty"`
	Type       domain.EventType `json:"type"`
	MessageID  string           `json:"message_id,omitempty"`
	Details    string           `json:"details,omitempty"`
}

// HandleFeedback records a feedback event and applies the regulatory
// auto-suppression rules: hard bounces and complaints suppress the
// address immediately; soft bounces never do.
func (s *Service) HandleFeedback(ctx context.Context, fb *Feedback) error {
	email := domain.NormalizeEmail(fb.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}
	switch fb.Type {
	case domain.EventDelivered, domain.EventOpened, domain.EventClicked,
		domain.EventSoftBounce, domain.EventHardBounce, domain.EventComplained:
	default:
		return fmt.Errorf("unsupported feedback type %q", fb.Type)
	}

	if err := s.Record(ctx, &domain.Event{
		SequenceID: fb.SequenceID,
		Email:      email,
		Step:       fb.Step,
		Type:       fb.Type,
		MessageID:  fb.MessageID,
		Details:    fb.Details,
	}); err != nil {
		return err
	}

	switch fb.Type {
	case domain.EventHardBounce:
		return s.autoSuppress(ctx, email, domain.ReasonHardBounce, domain.SourceBounceHandler, fb.Details)
	case domain.EventComplained:
		return s.autoSuppress(ctx, email, domain.ReasonComplaint, domain.SourceComplaintHandler, fb.Details)
	}
	return nil
}

func (s *Service) autoSuppress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, notes string) error {
	if _, err := s.suppressor.Add(ctx, email, reason, source, notes, "feedback-handler"); err != nil {
		return fmt.Errorf("auto-suppress %s: %w", email, err)
	}
	logger.Info("auto-suppressed from feedback", "email", email, "reason", string(reason))
	return nil
}
