// Package poller runs the client-side polling loops that keep cached
// flight statuses fresh while a trip screen is visible. Cadence comes from
// the freshness tier policy; every network round trip goes through the
// shared aggregation entry point, one call per trip per tick.
package poller

import (
	"context"
	"log"
	"time"

	"wayfarer/tripdesk/internal/db/repositories"
	"wayfarer/tripdesk/internal/freshness"
	"wayfarer/tripdesk/internal/models/dtos"

	"golang.org/x/sync/singleflight"
)

// Aggregator is the server aggregation entry point as the poller sees it.
type Aggregator interface {
	AggregateTrip(ctx context.Context, tripID string) (*dtos.AggregateResult, error)
}

// Update is one reactive emission: the merged freshness records for every
// watched flight on a trip.
type Update struct {
	TripID  string
	Records map[string]freshness.Record
	At      time.Time
}

// PollState is the per-entity scheduling state for one cadence pass. It is
// never persisted; it is recomputed from the reservation's scheduled times
// on every tick.
type PollState struct {
	ReservationID string
	Interval      time.Duration
	NextDue       time.Time
}

// Poller watches trips and refreshes their flight statuses on the tiered
// cadence. One Poller instance serves the whole client process.
type Poller struct {
	reservations *repositories.ReservationRepo
	agg          Aggregator
	group        singleflight.Group
}

// NewPoller creates a new poller.
func NewPoller(reservations *repositories.ReservationRepo, agg Aggregator) *Poller {
	return &Poller{
		reservations: reservations,
		agg:          agg,
	}
}

// Watch starts a polling loop for one trip and returns a channel of merged
// record updates. The first emission is the current cached state, with no
// network call. The channel closes when ctx is cancelled or when no flight
// on the trip is pollable anymore.
func (p *Poller) Watch(ctx context.Context, tripID string) <-chan Update {
	ch := make(chan Update, 1)

	go func() {
		defer close(ch)

		if snap, err := p.Snapshot(ctx, tripID); err == nil {
			emit(ch, snap)
		} else {
			log.Printf("[Poller] Trip %s: failed to read initial snapshot: %v", tripID, err)
		}

		for {
			states, interval, ok := p.cadence(ctx, tripID, time.Now())
			if !ok {
				log.Printf("[Poller] Trip %s: no pollable flights (%d watched), stopping", tripID, len(states))
				return
			}

			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			update, err := p.refresh(ctx, tripID)
			if err != nil {
				// Background tick failures are silent: keep the previous
				// cached value and wait for the next natural tick. No
				// tighter rescheduling on error.
				log.Printf("[Poller] Trip %s: tick failed, keeping cached state: %v", tripID, err)
				continue
			}
			emit(ch, update)
		}
	}()

	return ch
}

// RefreshNow forces one refresh for a trip regardless of the tier policy.
// Concurrent calls for the same trip are coalesced: only one network call
// is issued and every caller observes the same result.
func (p *Poller) RefreshNow(ctx context.Context, tripID string) (map[string]freshness.Record, error) {
	update, err := p.refresh(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return update.Records, nil
}

// Snapshot reads the currently cached records for a trip without touching
// the network.
func (p *Poller) Snapshot(ctx context.Context, tripID string) (Update, error) {
	flights, err := p.reservations.ListFlightsByTrip(ctx, tripID)
	if err != nil {
		return Update{}, err
	}

	records := make(map[string]freshness.Record)
	for _, f := range flights {
		if rec, ok := freshness.Decode(f.Details); ok {
			records[f.ID] = rec
		}
	}
	return Update{TripID: tripID, Records: records, At: time.Now()}, nil
}

// refresh funnels every refresh for a trip, scheduled or explicit, through
// one in-flight call per trip.
func (p *Poller) refresh(ctx context.Context, tripID string) (Update, error) {
	v, err, _ := p.group.Do(tripID, func() (interface{}, error) {
		result, err := p.agg.AggregateTrip(ctx, tripID)
		if err != nil {
			return nil, err
		}
		return Update{TripID: tripID, Records: result.PerEntity, At: time.Now()}, nil
	})
	if err != nil {
		return Update{}, err
	}
	return v.(Update), nil
}

// cadence computes the per-entity poll state for a trip and the soonest
// interval across its flights. ok=false means nothing needs polling.
func (p *Poller) cadence(ctx context.Context, tripID string, now time.Time) ([]PollState, time.Duration, bool) {
	flights, err := p.reservations.ListFlightsByTrip(ctx, tripID)
	if err != nil {
		log.Printf("[Poller] Trip %s: failed to list flights: %v", tripID, err)
		return nil, 0, false
	}

	var states []PollState
	min := time.Duration(0)
	any := false
	for _, f := range flights {
		rec, _ := freshness.Decode(f.Details)
		interval, ok := freshness.NextInterval(now, f.ScheduledStart, rec.Status, f.ScheduledEnd)
		if !ok {
			continue
		}
		states = append(states, PollState{
			ReservationID: f.ID,
			Interval:      interval,
			NextDue:       now.Add(interval),
		})
		if !any || interval < min {
			min = interval
			any = true
		}
	}
	return states, min, any
}

// emit delivers an update without ever blocking the poll loop. If the
// subscriber has not drained the previous update it is replaced; only the
// latest state matters.
func emit(ch chan Update, u Update) {
	for {
		select {
		case ch <- u:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
