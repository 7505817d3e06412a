package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Log routes
			r.Post("/journal", apiHandler.CreateJournalEntryHandler)
			r.Get("/journal", apiHandler.ListJournalEntriesHandler)
			r.Post("/health-logs", apiHandler.CreateHealthLogHandler)
			r.Get("/health-logs", apiHandler.ListHealthLogsHandler)
			r.Put("/checkins", apiHandler.UpsertCheckInHandler)
			r.Get("/checkins", apiHandler.ListCheckInsHandler)

			// Profile routes
			r.Get("/profile", apiHandler.GetProfileHandler)
			r.Put("/profile", apiHandler.UpsertProfileHandler)

			// Analytics routes
			r.Get("/relapse-overview", apiHandler.RelapseOverviewHandler)
			r.Get("/daily-progress", apiHandler.DailyProgressHandler)
		})
	})

	return r
}
