package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/pkg/httputil"
	"github.com/ignite/sequencer/internal/service/events"
	"github.com/ignite/sequencer/internal/service/journal"
)

// HandleListJournal returns journal entries with filtering and
// pagination.
func (h *Handlers) HandleListJournal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := journal.ListFilter{
		Action: q.Get("action"),
		Email:  q.Get("email"),
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if v := q.Get("from"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = ts
		}
	}
	if v := q.Get("to"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = ts
		}
	}

	entries, total, err := h.Journal.List(r.Context(), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	httputil.OK(w, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}

// HandleRunDispatch triggers one dispatch pass immediately instead of
// waiting for the next poll tick.
func (h *Handlers) HandleRunDispatch(w http.ResponseWriter, r *http.Request) {
	claimed, err := h.Dispatcher.RunPass(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"claimed": claimed})
}

// HandleFeedbackEvent ingests one provider feedback notification
// (delivered, opened, clicked, bounces, complaints).
func (h *Handlers) HandleFeedbackEvent(w http.ResponseWriter, r *http.Request) {
	var fb events.Feedback
	if !httputil.Decode(w, r, &fb) {
		return
	}
	if err := h.Events.HandleFeedback(r.Context(), &fb); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, map[string]string{"status": "recorded"})
}
