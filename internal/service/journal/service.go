package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/sequencer/internal/domain"
)

// Service implements journal business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a journal service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends one entry. A journal write failure is fatal for the
// calling operation and must be surfaced, never swallowed.
func (s *Service) Record(ctx context.Context, action domain.JournalAction, email, details, actor string) error {
	if action == "" {
		return fmt.Errorf("journal action is required")
	}
	if actor == "" {
		actor = "system"
	}

	entry := &domain.JournalEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Email:     domain.NormalizeEmail(email),
		Details:   details,
		Actor:     actor,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}

// List returns entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.JournalEntry, int, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}
