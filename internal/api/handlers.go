// Package api exposes the sequencer's HTTP surface: suppression CRUD,
// journal queries, sequence lifecycle, dispatch control, and provider
// feedback.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/sequencer/internal/pkg/httputil"
	"github.com/ignite/sequencer/internal/service/events"
	"github.com/ignite/sequencer/internal/service/journal"
	"github.com/ignite/sequencer/internal/service/sequence"
	"github.com/ignite/sequencer/internal/service/suppression"
	"github.com/ignite/sequencer/internal/tracking"
)

// DispatchRunner triggers one on-demand dispatch pass.
type DispatchRunner interface {
	RunPass(ctx context.Context) (int, error)
}

// Handlers bundles the services behind the HTTP surface.
type Handlers struct {
	Suppressions *suppression.Service
	Journal      *journal.Service
	Sequences    *sequence.Service
	Events       *events.Service
	Dispatcher   DispatchRunner
	Tracking     *tracking.Handler
}

// NewHandlers creates the handler set.
func NewHandlers(
	suppressions *suppression.Service,
	journalSvc *journal.Service,
	sequences *sequence.Service,
	eventsSvc *events.Service,
	dispatcher DispatchRunner,
	trackingHandler *tracking.Handler,
) *Handlers {
	return &Handlers{
		Suppressions: suppressions,
		Journal:      journalSvc,
		Sequences:    sequences,
		Events:       eventsSvc,
		Dispatcher:   dispatcher,
		Tracking:     trackingHandler,
	}
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// actorFrom returns the acting identity for journal attribution. Falls
// back to "api" when the caller didn't identify itself.
func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}
