package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all HTTP routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HandleHealth)

	// Public unsubscribe endpoint; no auth, reached from email clients.
	r.Get("/u/{data}/{sig}", h.Tracking.HandleUnsubscribe)

	r.Route("/api", func(r chi.Router) {
		r.Route("/suppressions", func(r chi.Router) {
			r.Get("/", h.HandleListSuppressions)
			r.Post("/", h.HandleAddSuppression)
			r.Get("/stats", h.HandleSuppressionStats)
			r.Post("/import", h.HandleImportSuppressions)
			r.Get("/export", h.HandleExportSuppressions)
			r.Get("/check/{email}", h.HandleCheckSuppression)
			r.Delete("/{email}", h.HandleRemoveSuppression)
		})

		r.Get("/journal", h.HandleListJournal)

		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", h.HandleListSequences)
			r.Post("/", h.HandleStartSequence)
			r.Get("/{id}", h.HandleGetSequence)
			r.Get("/{id}/details", h.HandleSequenceDetails)
			r.Get("/{id}/metrics", h.HandleSequenceMetrics)
			r.Post("/{id}/stop", h.HandleStopSequence)
		})

		r.Post("/dispatch/run", h.HandleRunDispatch)
		r.Post("/feedback/events", h.HandleFeedbackEvent)
	})

	return r
}
