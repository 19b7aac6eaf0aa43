package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/service/events"
	"github.com/ignite/sequencer/internal/service/journal"
	"github.com/ignite/sequencer/internal/service/sequence"
	"github.com/ignite/sequencer/internal/service/suppression"
	"github.com/ignite/sequencer/internal/service/template"
	"github.com/ignite/sequencer/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory repositories backing the real services for handler tests.

type memSuppRepo struct {
	mu      sync.Mutex
	entries map[string]domain.Suppression
}

func (m *memSuppRepo) IsSuppressed(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[email]
	return ok, nil
}

func (m *memSuppRepo) Upsert(_ context.Context, s *domain.Suppression) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.entries[s.Email]
	m.entries[s.Email] = *s
	return !existed, nil
}

func (m *memSuppRepo) Remove(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[email]; !ok {
		return suppression.ErrNotFound
	}
	delete(m.entries, email)
	return nil
}

func (m *memSuppRepo) List(_ context.Context, f suppression.ListFilter) ([]domain.Suppression, int, error) {
	all, _ := m.All(context.Background())
	var out []domain.Suppression
	for _, s := range all {
		if f.Reason != "" && string(s.Reason) != f.Reason {
			continue
		}
		if f.Search != "" && !strings.Contains(s.Email, f.Search) {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *memSuppRepo) All(_ context.Context) ([]domain.Suppression, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Suppression
	for _, s := range m.entries {
		out = append(out, s)
	}
	return out, nil
}

type memJournalRepo struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
}

func (m *memJournalRepo) Append(_ context.Context, e *domain.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memJournalRepo) List(_ context.Context, f journal.ListFilter) ([]domain.JournalEntry, int, error) {
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
	return out, len(out), nil
}

type memSeqRepo struct {
	mu        sync.Mutex
	sequences map[string]domain.Sequence
	steps     []domain.StepState
}

func (m *memSeqRepo) CreateSequence(_ context.Context, s *domain.Sequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[s.ID] = *s
	return nil
}

func (m *memSeqRepo) GetSequence(_ context.Context, id string) (*domain.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sequences[id]
	if !ok {
		return nil, sequence.ErrNotFound
	}
	return &s, nil
}

func (m *memSeqRepo) ListSequences(context.Context) ([]domain.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Sequence
	for _, s := range m.sequences {
		out = append(out, s)
	}
	return out, nil
}

func (m *memSeqRepo) MarkStopped(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sequences[id]
	if !ok {
		return sequence.ErrNotFound
	}
	s.Status = domain.SequenceStopped
	m.sequences[id] = s
	return nil
}

func (m *memSeqRepo) CreateEnrollment(_ context.Context, _ *domain.Enrollment, steps []domain.StepState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
	return nil
}

func (m *memSeqRepo) CancelOpenSteps(_ context.Context, sequenceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.steps {
		if m.steps[i].SequenceID == sequenceID && !m.steps[i].Status.Terminal() {
			m.steps[i].Status = domain.StepCancelled
			n++
		}
	}
	return n, nil
}

func (m *memSeqRepo) ListEnrollments(context.Context, string) ([]domain.Enrollment, error) {
	return nil, nil
}

func (m *memSeqRepo) ListStepStates(_ context.Context, sequenceID string) ([]domain.StepState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StepState
	for _, st := range m.steps {
		if st.SequenceID == sequenceID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memSeqRepo) ClaimDueSteps(context.Context, string, time.Time, int) ([]sequence.ClaimedStep, error) {
	return nil, nil
}

func (m *memSeqRepo) CompleteStep(context.Context, string, string, int, domain.StepStatus, string, string) error {
	return nil
}

func (m *memSeqRepo) ReleaseStep(context.Context, string, string, int) error { return nil }

type memEventRepo struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *memEventRepo) Append(_ context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memEventRepo) ListBySequence(_ context.Context, sequenceID string) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if e.SequenceID == sequenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

type emptyDirectory struct{}

func (emptyDirectory) ListEligible(context.Context) ([]domain.Prospect, error) { return nil, nil }
func (emptyDirectory) Find(context.Context, string) (*domain.Prospect, error)  { return nil, nil }

type stubRunner struct{ claimed int }

func (s *stubRunner) RunPass(context.Context) (int, error) { return s.claimed, nil }

func testServer(t *testing.T) (*httptest.Server, *memSuppRepo, *memJournalRepo) {
	t.Helper()

	suppRepo := &memSuppRepo{entries: make(map[string]domain.Suppression)}
	journalRepo := &memJournalRepo{}
	seqRepo := &memSeqRepo{sequences: make(map[string]domain.Sequence)}
	eventRepo := &memEventRepo{}

	journalSvc := journal.NewService(journalRepo)
	suppSvc := suppression.NewService(suppRepo, journalSvc)
	eventsSvc := events.NewService(eventRepo, suppSvc)

	reg, err := template.NewRegistry([]domain.Template{
		{Step: 1, Subject: "s1", Body: "b1 {{ unsubscribe_url }}", DelayDays: 0},
		{Step: 2, Subject: "s2", Body: "b2 {{ unsubscribe_url }}", DelayDays: 2},
	})
	require.NoError(t, err)

	seqSvc := sequence.NewService(seqRepo, emptyDirectory{}, suppSvc, journalSvc, eventsSvc, reg)

	signer := tracking.NewSigner("test-secret")
	h := NewHandlers(suppSvc, journalSvc, seqSvc, eventsSvc, &stubRunner{claimed: 3}, tracking.NewHandler(signer, suppSvc))

	srv := httptest.NewServer(SetupRoutes(h))
	t.Cleanup(srv.Close)
	return srv, suppRepo, journalRepo
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAddSuppression_CreatedAndJournaled(t *testing.T) {
	srv, suppRepo, journalRepo := testServer(t)

	resp := postJSON(t, srv.URL+"/api/suppressions", map[string]string{
		"email":  "Jane@X.com",
		"reason": "manual",
		"notes":  "requested by phone",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	_, ok := suppRepo.entries["jane@x.com"]
	assert.True(t, ok, "email should be normalized and stored")

	require.Len(t, journalRepo.entries, 1)
	assert.Equal(t, domain.ActionAddSuppression, journalRepo.entries[0].Action)
	assert.Equal(t, "jane@x.com", journalRepo.entries[0].Email)
}

func TestAddSuppression_InvalidEmail(t *testing.T) {
	srv, _, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/api/suppressions", map[string]string{"email": "not-an-email"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveSuppression_NotFound(t *testing.T) {
	srv, _, journalRepo := testServer(t)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/suppressions/ghost@x.com", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, journalRepo.entries, "failed removal must not be journaled")
}

func TestCheckSuppression(t *testing.T) {
	srv, _, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/api/suppressions", map[string]string{"email": "blocked@x.com"})
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/suppressions/check/blocked@x.com")
	require.NoError(t, err)
	var check struct {
		Suppressed bool `json:"suppressed"`
	}
	decodeBody(t, resp, &check)
	assert.True(t, check.Suppressed)
}

func TestImportExportRoundTrip(t *testing.T) {
	srv, _, journalRepo := testServer(t)

	csvBody := "email,reason,source\njane@x.com,unsubscribe,footer_link\nbad-row,,\nsam@x.com,manual,manual\n"
	resp, err := http.Post(srv.URL+"/api/suppressions/import", "text/csv", strings.NewReader(csvBody))
	require.NoError(t, err)
	var report struct {
		Imported int `json:"imported"`
		Errors   []struct {
			Line int `json:"line"`
		} `json:"errors"`
	}
	decodeBody(t, resp, &report)
	assert.Equal(t, 2, report.Imported)
	assert.Len(t, report.Errors, 1)

	resp, err = http.Get(srv.URL + "/api/suppressions/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(out), "jane@x.com")
	assert.Contains(t, string(out), "sam@x.com")
	assert.NotContains(t, string(out), "bad-row")

	// One batch entry for import and one for export.
	var actions []domain.JournalAction
	for _, e := range journalRepo.entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, domain.ActionCSVImport)
	assert.Contains(t, actions, domain.ActionCSVExport)
}

func TestStartAndStopSequence(t *testing.T) {
	srv, _, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/api/sequences", map[string]interface{}{
		"mode":        "test",
		"test_emails": []string{"a@x.com", "b@x.com"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var started struct {
		SequenceID string `json:"sequence_id"`
		Enrolled   int    `json:"enrolled_count"`
	}
	decodeBody(t, resp, &started)
	assert.Equal(t, 2, started.Enrolled)
	require.NotEmpty(t, started.SequenceID)

	resp = postJSON(t, srv.URL+"/api/sequences/"+started.SequenceID+"/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stopped struct {
		CancelledSteps int `json:"cancelled_steps"`
	}
	decodeBody(t, resp, &stopped)
	assert.Equal(t, 4, stopped.CancelledSteps, "2 prospects x 2 steps")
}

func TestStartSequence_BadMode(t *testing.T) {
	srv, _, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/api/sequences", map[string]string{"mode": "dry-run"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSequenceMetrics_UnknownSequence(t *testing.T) {
	srv, _, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/sequences/no-such-id/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedback_HardBounceSuppresses(t *testing.T) {
	srv, suppRepo, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/api/feedback/events", map[string]interface{}{
		"email": "bounced@x.com",
		"type":  "hard_bounce",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entry, ok := suppRepo.entries["bounced@x.com"]
	require.True(t, ok)
	assert.Equal(t, domain.ReasonHardBounce, entry.Reason)
}

func TestFeedback_SoftBounceDoesNotSuppress(t *testing.T) {
	srv, suppRepo, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/api/feedback/events", map[string]interface{}{
		"email": "full@x.com",
		"type":  "soft_bounce",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, ok := suppRepo.entries["full@x.com"]
	assert.False(t, ok)
}

func TestRunDispatch(t *testing.T) {
	srv, _, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/api/dispatch/run", nil)
	var result struct {
		Claimed int `json:"claimed"`
	}
	decodeBody(t, resp, &result)
	assert.Equal(t, 3, result.Claimed)
}

func TestJournalList_FilterByAction(t *testing.T) {
	srv, _, _ := testServer(t)

	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/api/suppressions", map[string]string{
			"email": fmt.Sprintf("p%d@x.com", i),
		})
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/journal?action=add_suppression")
	require.NoError(t, err)
	var listing struct {
		Entries []domain.JournalEntry `json:"entries"`
		Total   int                   `json:"total"`
	}
	decodeBody(t, resp, &listing)
	assert.Equal(t, 2, listing.Total)
}

func TestUnsubscribeLink_EndToEnd(t *testing.T) {
	srv, suppRepo, journalRepo := testServer(t)

	signer := tracking.NewSigner("test-secret")
	url := signer.URL(srv.URL, tracking.Token{Email: "jane@x.com", SequenceID: "seq-1", Step: 1})

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entry, ok := suppRepo.entries["jane@x.com"]
	require.True(t, ok)
	assert.Equal(t, domain.ReasonUnsubscribe, entry.Reason)
	assert.Equal(t, domain.SourceFooterLink, entry.Source)

	require.NotEmpty(t, journalRepo.entries)
	assert.Equal(t, domain.ActionAddSuppression, journalRepo.entries[0].Action)
}
