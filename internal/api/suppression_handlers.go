package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/pkg/httputil"
	"github.com/ignite/sequencer/internal/service/suppression"
)

// HandleListSuppressions returns suppression entries with filtering and
// pagination.
func (h *Handlers) HandleListSuppressions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := suppression.ListFilter{
		Search: q.Get("search"),
		Reason: q.Get("reason"),
		Source: q.Get("source"),
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

	entries, total, err := h.Suppressions.List(r.Context(), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.Suppression{}
	}
	httputil.OK(w, map[string]interface{}{
		"suppressions": entries,
		"total":        total,
	})
}

// HandleAddSuppression adds one address to the suppression list.
func (h *Handlers) HandleAddSuppression(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email  string `json:"email"`
		Reason string `json:"reason"`
		Source string `json:"source"`
		Notes  string `json:"notes"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	if input.Reason == "" {
		input.Reason = string(domain.ReasonManual)
	}
	if input.Source == "" {
		input.Source = string(domain.SourceManual)
	}

	entry, err := h.Suppressions.Add(r.Context(), input.Email,
		domain.SuppressionReason(input.Reason), domain.SuppressionSource(input.Source),
		input.Notes, actorFrom(r))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, entry)
}

// HandleRemoveSuppression deletes an entry. The removal is journaled by
// the service; a missing entry is a 404 and nothing is journaled.
func (h *Handlers) HandleRemoveSuppression(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	err := h.Suppressions.Remove(r.Context(), email, actorFrom(r))
	if errors.Is(err, suppression.ErrNotFound) {
		httputil.NotFound(w, "email not on suppression list")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// HandleCheckSuppression reports whether one address is suppressed.
func (h *Handlers) HandleCheckSuppression(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	suppressed, err := h.Suppressions.IsSuppressed(r.Context(), email)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"email":      domain.NormalizeEmail(email),
		"suppressed": suppressed,
	})
}

// HandleSuppressionStats returns aggregate counts by reason and source.
func (h *Handlers) HandleSuppressionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Suppressions.GetStats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// HandleImportSuppressions bulk-imports a CSV body. Row problems come
// back in the report; only batch-level failures are errors.
func (h *Handlers) HandleImportSuppressions(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	report, err := h.Suppressions.ImportCSV(r.Context(), r.Body, actorFrom(r))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, report)
}

// HandleExportSuppressions streams the full list as CSV.
func (h *Handlers) HandleExportSuppressions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="suppressions-%s.csv"`, time.Now().UTC().Format("2006-01-02")))
	if _, err := h.Suppressions.ExportCSV(r.Context(), w, actorFrom(r)); err != nil {
		// Headers are already out; all we can do is log via the 500 path.
		httputil.InternalError(w, err)
	}
}
