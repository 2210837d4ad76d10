package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/constants"
	"wayfarer/tripdesk/internal/db/repositories"
	"wayfarer/tripdesk/internal/freshness"
	"wayfarer/tripdesk/internal/models/dtos"
	gormModels "wayfarer/tripdesk/internal/models/gorm"
	"wayfarer/tripdesk/internal/providers"
)

// StatusProvider is the upstream flight status API as the aggregator sees
// it: one aggregated call per batch of flights.
type StatusProvider interface {
	FetchStatuses(ctx context.Context, flights []providers.FlightQuery) (map[string]freshness.Record, error)
}

// DefaultAggregateCooldown is how long an owner must wait between
// aggregation calls. Every path (client poll tick, explicit refresh,
// server fan-out) funnels through here, so this single window bounds
// upstream call volume per owner.
const DefaultAggregateCooldown = 3 * time.Minute

// Fan-out lookup window around now. Matches the server fan-out job so the
// two paths always refresh the same set of flights for an owner.
const (
	WindowLookBack  = 12 * time.Hour
	WindowLookAhead = 48 * time.Hour
)

// StatusAggregator is the single entry point for refreshing cached flight
// statuses. It enforces the per-owner cooldown, issues one upstream call
// per invocation, and merges results into storage wholesale via the codec.
type StatusAggregator struct {
	cache        common.CacheInterface
	provider     StatusProvider
	reservations *repositories.ReservationRepo
	trips        *repositories.TripRepo
	cooldown     time.Duration
}

// NewStatusAggregator creates a new aggregator. A non-positive cooldown
// falls back to the default.
func NewStatusAggregator(
	cache common.CacheInterface,
	provider StatusProvider,
	reservations *repositories.ReservationRepo,
	trips *repositories.TripRepo,
	cooldown time.Duration,
) *StatusAggregator {
	if cooldown <= 0 {
		cooldown = DefaultAggregateCooldown
	}
	return &StatusAggregator{
		cache:        cache,
		provider:     provider,
		reservations: reservations,
		trips:        trips,
		cooldown:     cooldown,
	}
}

// AggregateOwner refreshes every flight the owner has inside the fan-out
// window with a single upstream call.
func (s *StatusAggregator) AggregateOwner(ctx context.Context, ownerID string) (*dtos.AggregateResult, error) {
	if err := s.checkCooldown(ownerID); err != nil {
		return nil, err
	}

	now := time.Now()
	flights, err := s.reservations.ListFlightsByOwner(ctx, ownerID, now.Add(-WindowLookBack), now.Add(WindowLookAhead))
	if err != nil {
		return nil, fmt.Errorf("failed to list flights for owner: %w", err)
	}

	return s.refresh(ctx, flights)
}

// AggregateTrip refreshes every flight on one trip with a single upstream
// call. The cooldown is still tracked per owner, shared with every other
// path, so two trips of the same owner cannot double upstream volume
// inside the window.
func (s *StatusAggregator) AggregateTrip(ctx context.Context, tripID string) (*dtos.AggregateResult, error) {
	ownerID, err := s.trips.GetOwnerID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve trip owner: %w", err)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("trip %s not found", tripID)
	}

	if err := s.checkCooldown(ownerID); err != nil {
		return nil, err
	}

	flights, err := s.reservations.ListFlightsByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip flights: %w", err)
	}

	return s.refresh(ctx, flights)
}

// checkCooldown refuses a second call for the owner inside the cooldown
// window. The stamp is written before the upstream call so a burst of
// callers cannot race past an in-flight refresh.
func (s *StatusAggregator) checkCooldown(ownerID string) error {
	key := string(constants.CachePrefixAggregateCooldown) + ownerID

	if val, found := s.cache.Get(key); found {
		if expiry, ok := asUnixSeconds(val); ok {
			remaining := time.Until(time.Unix(expiry, 0))
			if remaining > 0 {
				return &common.RateLimitedError{RetryAfter: remaining}
			}
		}
	}

	s.cache.Set(key, time.Now().Add(s.cooldown).Unix(), s.cooldown)
	return nil
}

// refresh issues the upstream call and merges the response into storage.
// The whole batch is persisted in one transaction; a response older than
// what is already cached never overwrites it.
func (s *StatusAggregator) refresh(ctx context.Context, flights []gormModels.Reservation) (*dtos.AggregateResult, error) {
	result := &dtos.AggregateResult{PerEntity: make(map[string]freshness.Record, len(flights))}
	if len(flights) == 0 {
		return result, nil
	}

	queries := make([]providers.FlightQuery, 0, len(flights))
	for _, f := range flights {
		queries = append(queries, providers.FlightQuery{
			ReservationID: f.ID,
			Airline:       stringDetail(f.Details, "airline"),
			FlightNumber:  stringDetail(f.Details, "flight_number"),
			Departure:     f.ScheduledStart,
		})
	}

	fetched, err := s.provider.FetchStatuses(ctx, queries)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]gormModels.AttrBag)
	for _, f := range flights {
		cached, hasCached := freshness.Decode(f.Details)

		rec, ok := fetched[f.ID]
		if !ok {
			// Upstream had nothing for this flight; keep what we have.
			if hasCached {
				result.PerEntity[f.ID] = cached
			}
			continue
		}

		if hasCached && !rec.NewerThan(cached) {
			// Stale response; the cache already holds something fresher.
			log.Printf("[StatusAggregator] Discarding stale response for reservation %s (response %s <= cached %s)",
				f.ID, rec.CheckedAt.Format(time.RFC3339), cached.CheckedAt.Format(time.RFC3339))
			result.PerEntity[f.ID] = cached
			continue
		}

		updates[f.ID] = freshness.Encode(f.Details, rec)
		result.PerEntity[f.ID] = rec
	}

	if err := s.reservations.UpdateDetailsBatch(ctx, updates); err != nil {
		return nil, fmt.Errorf("failed to persist status batch: %w", err)
	}

	return result, nil
}

// stringDetail pulls an optional string field out of a details bag.
func stringDetail(details gormModels.AttrBag, key string) string {
	if details == nil {
		return ""
	}
	if v, ok := details[key].(string); ok {
		return v
	}
	return ""
}

// asUnixSeconds normalizes a cached cooldown stamp. The in-memory cache
// hands back the int64 we stored; the Redis cache hands back a float64
// after its JSON round trip.
func asUnixSeconds(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
