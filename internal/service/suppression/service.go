package suppression

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/sequencer/internal/domain"
)

// Service implements suppression business logic. It is safe for
// concurrent use.
type Service struct {
	repo    Repository
	journal Recorder
}

// NewService creates a suppression service backed by the given repository
// and compliance journal.
func NewService(repo Repository, journal Recorder) *Service {
	return &Service{repo: repo, journal: journal}
}

// IsSuppressed checks whether an address is blocked from sending. A
// storage error here must be treated as "do not send" by callers
// (fail-closed): a send under uncertain suppression status is worse than
// a delayed send.
func (s *Service) IsSuppressed(ctx context.Context, email string) (bool, error) {
	return s.repo.IsSuppressed(ctx, domain.NormalizeEmail(email))
}

// Add puts an email on the suppression list. Idempotent: adding an
// already-suppressed email updates its metadata without duplicating the
// entry. Every call appends one add_suppression journal entry.
func (s *Service) Add(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, notes, actor string) (*domain.Suppression, error) {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}

	entry := &domain.Suppression{
		Email:   email,
		Reason:  reason,
		Source:  source,
		Notes:   notes,
		AddedAt: time.Now().UTC(),
	}
	if _, err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("suppress %s: %w", email, err)
	}

	details := fmt.Sprintf("reason=%s source=%s", reason, source)
	if err := s.journal.Record(ctx, domain.ActionAddSuppression, email, details, actor); err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove deletes a suppression entry. Returns ErrNotFound if the address
// was never suppressed; in that case nothing is journaled. A successful
// removal appends one remove_suppression entry; removal is never silent.
func (s *Service) Remove(ctx context.Context, email, actor string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if err := s.repo.Remove(ctx, email); err != nil {
		return err
	}
	return s.journal.Record(ctx, domain.ActionRemoveSuppression, email, "", actor)
}

// List returns suppression entries matching the given filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Suppression, int, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}

// Stats holds aggregate counts grouped by reason and source.
type Stats struct {
	Total    int            `json:"total"`
	ByReason map[string]int `json:"by_reason"`
	BySource map[string]int `json:"by_source"`
}

// GetStats computes suppression statistics for the query API.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:    len(entries),
		ByReason: make(map[string]int),
		BySource: make(map[string]int),
	}
	for _, e := range entries {
		stats.ByReason[string(e.Reason)]++
		stats.BySource[string(e.Source)]++
	}
	return stats, nil
}
