package jobs

import (
	"context"
	"time"

	"wayfarer/tripdesk/internal/metrics"
)

// DefaultFanoutInterval is how often the fan-out scheduler runs.
const DefaultFanoutInterval = 15 * time.Minute

// InitializeJobs initializes and starts all background jobs
func InitializeJobs(
	ctx context.Context,
	window WindowSource,
	aggregator OwnerAggregator,
	history HistoryRecorder,
	metricsReg *metrics.MetricsRegistry,
	interval time.Duration,
) *StatusFanoutJob {
	if interval <= 0 {
		interval = DefaultFanoutInterval
	}

	fanoutJob := NewStatusFanoutJob(window, aggregator, history).WithMetrics(metricsReg)

	// Start scheduled fan-out in background
	go fanoutJob.RunScheduled(ctx, interval)

	return fanoutJob
}
