package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/hives", func(r chi.Router) {
				r.Get("/", s.handleListHives)
				r.Post("/", s.handleCreateHive)

				r.Route("/{hiveID}", func(r chi.Router) {
					// Every nested route 404s before its handler
					// when the hive does not exist.
					r.Use(s.hiveCtxMiddleware)

					r.Get("/", s.handleGetHive)
					r.Put("/", s.handleUpdateHive)
					r.Delete("/", s.handleDeleteHive)

					r.Route("/statuses", func(r chi.Router) {
						r.Get("/", s.handleListStatuses)
						r.Post("/", s.handleCreateStatus)

						// Static metric routes take precedence over
						// the status ID parameter.
						r.Get("/latest", s.handleLatestStatus)
						r.Get("/humidity", s.handleHumiditySeries)
						r.Get("/weight", s.handleWeightSeries)
						r.Get("/temperature", s.handleTemperatureSeries)
						r.Get("/hiveflow", s.handleHiveFlowSeries)

						r.Get("/{statusID}", s.handleGetStatus)
					})

					r.Route("/harvests", func(r chi.Router) {
						r.Get("/", s.handleListHarvests)
						r.Post("/", s.handleCreateHarvest)

						r.Route("/webhooks", func(r chi.Router) {
							r.Post("/", s.handleSubscribe)
							r.Get("/", s.handleListSubscriptions)
							r.Delete("/", s.handleUnsubscribe)
						})

						r.Get("/{harvestID}", s.handleGetHarvest)
					})
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
