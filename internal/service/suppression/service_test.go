package suppression

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu    sync.RWMutex
	store map[string]*domain.Suppression
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*domain.Suppression)}
}

func (m *mockRepo) IsSuppressed(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.store[email]
	return ok, nil
}

func (m *mockRepo) Upsert(_ context.Context, s *domain.Suppression) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.store[s.Email]
	if exists {
		existing := m.store[s.Email]
		existing.Reason = s.Reason
		existing.Source = s.Source
		existing.Notes = s.Notes
		return false, nil
	}
	cp := *s
	m.store[s.Email] = &cp
	return true, nil
}

func (m *mockRepo) Remove(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[email]; !ok {
		return ErrNotFound
	}
	delete(m.store, email)
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]domain.Suppression, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Suppression
	for _, s := range m.store {
		if f.Reason != "" && string(s.Reason) != f.Reason {
			continue
		}
		if f.Search != "" && !strings.Contains(s.Email, f.Search) {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockRepo) All(_ context.Context) ([]domain.Suppression, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Suppression
	for _, s := range m.store {
		out = append(out, *s)
	}
	return out, nil
}

// recordingJournal captures journal calls for assertions.
type recordingJournal struct {
	mu      sync.Mutex
	records []domain.JournalAction
}

func (r *recordingJournal) Record(_ context.Context, action domain.JournalAction, _, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, action)
	return nil
}

func (r *recordingJournal) count(action domain.JournalAction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.records {
		if a == action {
			n++
		}
	}
	return n
}

func TestAdd_SuppressesNormalizedEmail(t *testing.T) {
	jr := &recordingJournal{}
	svc := NewService(newMockRepo(), jr)
	ctx := context.Background()

	_, err := svc.Add(ctx, "  Bounce@Example.COM ", domain.ReasonHardBounce, domain.SourceBounceHandler, "", "")
	require.NoError(t, err)

	ok, err := svc.IsSuppressed(ctx, "bounce@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = svc.IsSuppressed(ctx, "BOUNCE@EXAMPLE.COM")
	assert.True(t, ok, "lookup must be case-insensitive")

	assert.Equal(t, 1, jr.count(domain.ActionAddSuppression))
}

func TestAdd_Idempotent_MetadataReflectsLatestCall(t *testing.T) {
	repo := newMockRepo()
	jr := &recordingJournal{}
	svc := NewService(repo, jr)
	ctx := context.Background()

	_, err := svc.Add(ctx, "dup@example.com", domain.ReasonManual, domain.SourceManual, "first", "admin")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "dup@example.com", domain.ReasonComplaint, domain.SourceComplaintHandler, "second", "system")
	require.NoError(t, err)

	all, _ := repo.All(ctx)
	require.Len(t, all, 1, "exactly one active entry per address")
	assert.Equal(t, domain.ReasonComplaint, all[0].Reason)
	assert.Equal(t, "second", all[0].Notes)

	// Each add is still journaled; the journal is a history, not a set.
	assert.Equal(t, 2, jr.count(domain.ActionAddSuppression))
}

func TestAdd_RejectsInvalidEmail(t *testing.T) {
	svc := NewService(newMockRepo(), &recordingJournal{})

	_, err := svc.Add(context.Background(), "not-an-email", domain.ReasonManual, domain.SourceManual, "", "")
	assert.Error(t, err)
}

func TestRemove_Journaled(t *testing.T) {
	jr := &recordingJournal{}
	svc := NewService(newMockRepo(), jr)
	ctx := context.Background()

	_, err := svc.Add(ctx, "gone@example.com", domain.ReasonManual, domain.SourceManual, "", "admin")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "gone@example.com", "admin"))

	ok, _ := svc.IsSuppressed(ctx, "gone@example.com")
	assert.False(t, ok)
	assert.Equal(t, 1, jr.count(domain.ActionRemoveSuppression))
}

func TestRemove_NotFound_NoJournalEntry(t *testing.T) {
	jr := &recordingJournal{}
	svc := NewService(newMockRepo(), jr)

	err := svc.Remove(context.Background(), "ghost@example.com", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, jr.count(domain.ActionRemoveSuppression))
}

func TestGetStats_GroupsByReasonAndSource(t *testing.T) {
	svc := NewService(newMockRepo(), &recordingJournal{})
	ctx := context.Background()

	_, _ = svc.Add(ctx, "a@example.com", domain.ReasonHardBounce, domain.SourceBounceHandler, "", "")
	_, _ = svc.Add(ctx, "b@example.com", domain.ReasonComplaint, domain.SourceComplaintHandler, "", "")
	_, _ = svc.Add(ctx, "c@example.com", domain.ReasonHardBounce, domain.SourceBounceHandler, "", "")

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByReason["hard_bounce"])
	assert.Equal(t, 2, stats.BySource["bounce_handler"])
	assert.Equal(t, 1, stats.BySource["complaint_handler"])
}
