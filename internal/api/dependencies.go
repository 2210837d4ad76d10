package api

import (
	"log"

	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/config"
	"wayfarer/tripdesk/internal/db"
	"wayfarer/tripdesk/internal/db/repositories"
	"wayfarer/tripdesk/internal/metrics"
	"wayfarer/tripdesk/internal/poller"
	"wayfarer/tripdesk/internal/providers"
	"wayfarer/tripdesk/internal/services"
	"wayfarer/tripdesk/internal/syncer"
)

type Repositories struct {
	Reservations *repositories.ReservationRepo
	Trips        *repositories.TripRepo
	SyncHistory  *repositories.SyncHistoryRepo
	Window       *repositories.WindowRepository
}

type Services struct {
	Cache      common.CacheInterface
	Aggregator *services.StatusAggregator
	Poller     *poller.Poller
	Syncer     *syncer.Orchestrator
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Metrics  *metrics.MetricsRegistry
}

// InitDependencies wires the repository and service graph. Storage handles
// (db.DB, db.PgDB) must be initialized before this is called.
func InitDependencies(cfg *config.Config, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {

	repos := &Repositories{
		Reservations: repositories.NewReservationRepo(db.PgDB),
		Trips:        repositories.NewTripRepo(db.PgDB),
		SyncHistory:  repositories.NewSyncHistoryRepo(db.PgDB),
		Window:       repositories.NewWindowRepository(db.DB),
	}

	// Redis keeps the per-owner cooldown shared across replicas; a single
	// instance is fine with the in-memory cache.
	var cacheSvc common.CacheInterface
	if cfg.UseRedisCache {
		redisCache, err := common.NewRedisCacheService()
		if err != nil {
			log.Printf("[Dependencies] Redis cache unavailable, falling back to in-memory: %v", err)
			cacheSvc = common.NewCacheService(60000, 600)
		} else {
			log.Printf("[Dependencies] Using Redis-backed cache")
			cacheSvc = redisCache
		}
	} else {
		cacheSvc = common.NewCacheService(60000, 600)
	}

	aggregator := services.NewStatusAggregator(
		cacheSvc,
		providers.NewFlightStatusProvider(),
		repos.Reservations,
		repos.Trips,
		cfg.AggregateCooldown,
	)

	svcs := &Services{
		Cache:      cacheSvc,
		Aggregator: aggregator,
		Poller:     poller.NewPoller(repos.Reservations, aggregator),
		Syncer:     syncer.NewOrchestrator(providers.NewInboxScanProvider(), repos.SyncHistory, syncer.DefaultPolicy()),
	}

	return &Dependencies{
		Repo:     repos,
		Services: svcs,
		Metrics:  metricsReg,
	}, nil
}
