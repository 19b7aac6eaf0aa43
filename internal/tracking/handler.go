package tracking

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/pkg/logger"
)

// Suppressor is the slice of the suppression service the unsubscribe
// handler needs.
type Suppressor interface {
	Add(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, notes, actor string) (*domain.Suppression, error)
}

// Handler serves the public unsubscribe endpoint.
type Handler struct {
	signer     *Signer
	suppressor Suppressor
}

// NewHandler creates an unsubscribe handler.
func NewHandler(signer *Signer, suppressor Suppressor) *Handler {
	return &Handler{signer: signer, suppressor: suppressor}
}

// Routes mounts the public tracking routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/u/{data}/{sig}", h.HandleUnsubscribe)
	return r
}

// HandleUnsubscribe verifies the link and suppresses the address. The
// confirmation page renders even when the address was already suppressed;
// the underlying add is idempotent.
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token, err := h.signer.Verify(chi.URLParam(r, "data"), chi.URLParam(r, "sig"))
	if err != nil {
		http.Error(w, "bad link", http.StatusBadRequest)
		return
	}

	notes := "sequence=" + token.SequenceID
	if _, err := h.suppressor.Add(r.Context(), token.Email, domain.ReasonUnsubscribe, domain.SourceFooterLink, notes, "footer-link"); err != nil {
		logger.Error("unsubscribe failed", "email", token.Email, "error", err.Error())
		http.Error(w, "something went wrong, please try again", http.StatusInternalServerError)
		return
	}

	logger.Info("unsubscribed via footer link", "email", token.Email, "sequence_id", token.SequenceID)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;text-align:center;padding:50px;">
		<h1>You have been unsubscribed</h1>
		<p>You will no longer receive emails from us.</p>
	</body></html>`))
}
