package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/constants"
	"wayfarer/tripdesk/internal/metrics"
	"wayfarer/tripdesk/internal/models/dtos"
	"wayfarer/tripdesk/internal/models/entities"
	"wayfarer/tripdesk/internal/services"
)

// WindowSource lists the flight reservations inside the fan-out window.
// Satisfied by repositories.WindowRepository.
type WindowSource interface {
	FlightsInWindow(ctx context.Context, from, to time.Time) ([]entities.FlightWindowRow, error)
}

// OwnerAggregator is the per-owner aggregation entry point.
// Satisfied by services.StatusAggregator.
type OwnerAggregator interface {
	AggregateOwner(ctx context.Context, ownerID string) (*dtos.AggregateResult, error)
}

// HistoryRecorder stamps per-owner fan-out runs.
// Satisfied by repositories.SyncHistoryRepo.
type HistoryRecorder interface {
	RecordSync(ctx context.Context, accountID string, event string) error
}

// StatusFanoutJob periodically refreshes flight statuses for every owner
// with a flight in the lookup window. It issues one aggregation call per
// owner, not per flight, so upstream volume is bounded by owner count.
type StatusFanoutJob struct {
	window     WindowSource
	aggregator OwnerAggregator
	history    HistoryRecorder
	metricsReg *metrics.MetricsRegistry
}

// NewStatusFanoutJob creates a new fan-out job instance
func NewStatusFanoutJob(
	window WindowSource,
	aggregator OwnerAggregator,
	history HistoryRecorder,
) *StatusFanoutJob {
	return &StatusFanoutJob{
		window:     window,
		aggregator: aggregator,
		history:    history,
	}
}

// WithMetrics attaches a metrics registry. Optional; the job runs without one.
func (j *StatusFanoutJob) WithMetrics(reg *metrics.MetricsRegistry) *StatusFanoutJob {
	j.metricsReg = reg
	return j
}

// Run executes one fan-out pass across all owners.
func (j *StatusFanoutJob) Run(ctx context.Context) error {
	start := time.Now()
	log.Printf("[StatusFanoutJob] Starting status fan-out at %s", start.Format(time.RFC3339))

	from := start.Add(-services.WindowLookBack)
	to := start.Add(services.WindowLookAhead)

	rows, err := j.window.FlightsInWindow(ctx, from, to)
	if err != nil {
		log.Printf("[StatusFanoutJob] Error querying flight window: %v", err)
		return fmt.Errorf("failed to query flight window: %w", err)
	}

	if len(rows) == 0 {
		log.Printf("[StatusFanoutJob] No flights in window, nothing to do")
		return nil
	}

	batch := GroupByOwner(rows)
	log.Printf("[StatusFanoutJob] Found %d flights across %d owners", len(rows), len(batch))

	refreshed := 0
	failed := 0
	for ownerID, reservationIDs := range batch {
		_, err := j.aggregator.AggregateOwner(ctx, ownerID)
		if err != nil {
			// One owner's failure never blocks the rest.
			if rl, ok := common.IsRateLimited(err); ok {
				log.Printf("[StatusFanoutJob] Owner %s: inside cooldown, retry in %ds", ownerID, rl.RetryAfterSeconds())
			} else {
				log.Printf("[StatusFanoutJob] Owner %s: aggregation failed: %v", ownerID, err)
			}
			failed++
			if j.metricsReg != nil {
				j.metricsReg.FanoutOwnersTotal.WithLabelValues("error").Inc()
			}
			continue
		}
		refreshed++
		if j.metricsReg != nil {
			j.metricsReg.FanoutOwnersTotal.WithLabelValues("ok").Inc()
		}
		log.Printf("[StatusFanoutJob] Owner %s: refreshed %d flights in one call", ownerID, len(reservationIDs))

		if err := j.history.RecordSync(ctx, ownerID, constants.SyncEventStatusFanout); err != nil {
			log.Printf("[StatusFanoutJob] Owner %s: warning - failed to record sync history: %v", ownerID, err)
		}
	}

	log.Printf("[StatusFanoutJob] Completed fan-out in %s. Owners refreshed: %d, failed: %d",
		time.Since(start).Truncate(time.Millisecond), refreshed, failed)

	return nil
}

// RunScheduled runs the fan-out job on a fixed interval until ctx ends.
func (j *StatusFanoutJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	if err := j.Run(ctx); err != nil {
		log.Printf("[StatusFanoutJob] Error in initial run: %v", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				log.Printf("[StatusFanoutJob] Error in scheduled run: %v", err)
			}
		case <-ctx.Done():
			log.Printf("[StatusFanoutJob] Shutting down scheduled fan-out")
			return
		}
	}
}

// GroupByOwner buckets window rows into owner -> reservation-id set. The
// batch is transient; it is rebuilt from scratch on every pass.
func GroupByOwner(rows []entities.FlightWindowRow) map[string][]string {
	batch := make(map[string][]string)
	for _, row := range rows {
		batch[row.OwnerID] = append(batch[row.OwnerID], row.ReservationID)
	}
	return batch
}
