package routes

import (
	"context"
	"net/http"
	"time"

	"wayfarer/tripdesk/internal/api"
	"wayfarer/tripdesk/internal/config"
	"wayfarer/tripdesk/internal/db"
	"wayfarer/tripdesk/internal/jobs"
	"wayfarer/tripdesk/internal/logging"
	"wayfarer/tripdesk/internal/metrics"
	"wayfarer/tripdesk/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func RegisterRoutes(cfg *config.Config, upSince time.Time) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// Initialize metrics registry
	metricsReg := metrics.NewMetricsRegistry()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))
	r.Use(middleware.RateLimitMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Account-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	logging.Info("Router initialized with metrics and logging middleware")

	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(db.DB, upSince))

	// Initialize dependencies using DI pattern
	deps, err := api.InitDependencies(cfg, metricsReg)
	if err != nil {
		panic("Failed to initialize dependencies: " + err.Error())
	}

	// Initialize handlers with dependencies
	handlers := api.NewHandlers(deps)

	// Start the scheduled status fan-out. It outlives any request, so it
	// runs on the background context.
	fanoutJob := jobs.InitializeJobs(
		context.Background(),
		deps.Repo.Window,
		deps.Services.Aggregator,
		deps.Repo.SyncHistory,
		metricsReg,
		cfg.FanoutInterval,
	)

	jobsHandler := api.NewJobsHandler(fanoutJob)

	RegisterAPIRoutes(r, cfg, handlers, jobsHandler)

	return r
}
