package journal

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo is an in-memory append-only store for testing.
type mockRepo struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
}

func (m *mockRepo) Append(_ context.Context, e *domain.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]domain.JournalEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JournalEntry
	for _, e := range m.entries {
		if f.Action != "" && string(e.Action) != f.Action {
			continue
		}
		if f.Email != "" && e.Email != f.Email {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	total := len(out)
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func TestRecord_AssignsIDAndTimestamp(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	err := svc.Record(context.Background(), domain.ActionAddSuppression, "Jane@X.com", "manual add", "admin")
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	e := repo.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "jane@x.com", e.Email, "email should be normalized")
	assert.Equal(t, "admin", e.Actor)
}

func TestRecord_RequiresAction(t *testing.T) {
	svc := NewService(&mockRepo{})
	err := svc.Record(context.Background(), "", "a@x.com", "", "admin")
	assert.Error(t, err)
}

func TestRecord_DefaultsActorToSystem(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	require.NoError(t, svc.Record(context.Background(), domain.ActionSkipSend, "a@x.com", "suppressed at send time", ""))
	assert.Equal(t, "system", repo.entries[0].Actor)
}

func TestList_FiltersByActionAndEmail(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, domain.ActionAddSuppression, "a@x.com", "", "admin"))
	require.NoError(t, svc.Record(ctx, domain.ActionRemoveSuppression, "a@x.com", "", "admin"))
	require.NoError(t, svc.Record(ctx, domain.ActionAddSuppression, "b@x.com", "", "admin"))

	entries, total, err := svc.List(ctx, ListFilter{Action: "add_suppression"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, e := range entries {
		assert.Equal(t, domain.ActionAddSuppression, e.Action)
	}

	entries, total, err = svc.List(ctx, ListFilter{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, e := range entries {
		assert.Equal(t, "a@x.com", e.Email)
	}
}

func TestList_CapsLimit(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	_, _, err := svc.List(ctx, ListFilter{Limit: 100000})
	require.NoError(t, err)
}
