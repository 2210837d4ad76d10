package routes

import (
	"wayfarer/tripdesk/internal/api"
	"wayfarer/tripdesk/internal/config"
	"wayfarer/tripdesk/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
// This keeps API route registration separate from the main router setup
func RegisterAPIRoutes(r chi.Router, cfg *config.Config, handlers *api.Handlers, jobsHandler *api.JobsHandler) {

	r.Route("/api/v1", func(v1 chi.Router) {
		// global: all routes must be authenticated (JWT or service API key)
		v1.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret), cfg.ServiceAPIKey))

		// Trip freshness
		v1.Get("/trips/{trip_id}/status", handlers.TripStatus())
		v1.Post("/trips/{trip_id}/refresh", handlers.RefreshTrip())

		// Inbox sync session
		v1.Post("/sync", handlers.StartSync())
		v1.Get("/sync/status", handlers.SyncStatus())

		// Internal tooling
		v1.Post("/admin/jobs/status-fanout", jobsHandler.TriggerStatusFanout())
	})
}
