package freshness

import (
	"time"

	"wayfarer/tripdesk/internal/constants"
)

// Poll cadence tiers. The closer a departure gets, the tighter the
// interval, bounding upstream call volume while keeping staleness under ten
// minutes during the window the traveller actually cares about.
const (
	IntervalFar    = 6 * time.Hour    // 48h to 6h before departure
	IntervalNear   = 30 * time.Minute // 6h to 2h before departure
	IntervalActive = 5 * time.Minute  // 2h before departure through arrival

	// PollHorizon is how far ahead of departure polling starts at all.
	PollHorizon = 48 * time.Hour

	// DefaultFlightWindow is assumed when a reservation has no scheduled
	// arrival time.
	DefaultFlightWindow = 6 * time.Hour
)

// NextInterval returns the polling interval for a flight given the current
// time, its scheduled departure, the last known status, and the scheduled
// arrival if one exists. ok=false means the flight should not be polled:
// it is too far out, already over, or in a terminal state.
//
// Boundary times (exactly 48h, 6h, 2h out) belong to the tighter tier.
func NextInterval(now, departure time.Time, status constants.FlightStatus, arrival *time.Time) (time.Duration, bool) {
	if status.IsTerminal() {
		return 0, false
	}

	end := departure.Add(DefaultFlightWindow)
	if arrival != nil && !arrival.IsZero() {
		end = *arrival
	}
	if now.After(end) {
		return 0, false
	}

	until := departure.Sub(now)
	switch {
	case until > PollHorizon:
		return 0, false
	case until > 6*time.Hour:
		return IntervalFar, true
	case until > 2*time.Hour:
		return IntervalNear, true
	default:
		return IntervalActive, true
	}
}
