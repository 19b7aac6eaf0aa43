package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/pkg/httputil"
	"github.com/ignite/sequencer/internal/service/sequence"
)

// HandleStartSequence launches a sequence in live or test mode.
func (h *Handlers) HandleStartSequence(w http.ResponseWriter, r *http.Request) {
	var cfg sequence.StartConfig
	if !httputil.Decode(w, r, &cfg) {
		return
	}

	result, err := h.Sequences.Start(r.Context(), cfg)
	if errors.Is(err, sequence.ErrNoTestEmails) || errors.Is(err, sequence.ErrBadMode) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, result)
}

// HandleListSequences returns all sequence runs.
func (h *Handlers) HandleListSequences(w http.ResponseWriter, r *http.Request) {
	sequences, err := h.Sequences.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if sequences == nil {
		sequences = []domain.Sequence{}
	}
	httputil.OK(w, map[string]interface{}{"sequences": sequences})
}

// HandleGetSequence returns one sequence run.
func (h *Handlers) HandleGetSequence(w http.ResponseWriter, r *http.Request) {
	seq, err := h.Sequences.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sequence.ErrNotFound) {
		httputil.NotFound(w, "sequence not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, seq)
}

// HandleSequenceDetails returns per-prospect step states.
func (h *Handlers) HandleSequenceDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.Sequences.GetDetails(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sequence.ErrNotFound) {
		httputil.NotFound(w, "sequence not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, details)
}

// HandleSequenceMetrics returns the event-log projection for a sequence.
func (h *Handlers) HandleSequenceMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Sequences.Get(r.Context(), id); errors.Is(err, sequence.ErrNotFound) {
		httputil.NotFound(w, "sequence not found")
		return
	} else if err != nil {
		httputil.InternalError(w, err)
		return
	}

	rollup, err := h.Events.MetricsFor(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, rollup)
}

// HandleStopSequence stops a sequence and cancels its open steps.
func (h *Handlers) HandleStopSequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cancelled, err := h.Sequences.Stop(r.Context(), id)
	if errors.Is(err, sequence.ErrNotFound) {
		httputil.NotFound(w, "sequence not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"sequence_id":     id,
		"status":          domain.SequenceStopped,
		"cancelled_steps": cancelled,
	})
}
