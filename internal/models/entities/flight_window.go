package entities

import "time"

// FlightWindowRow is one flight reservation inside the fan-out lookup
// window, joined to its trip for owner resolution.
type FlightWindowRow struct {
	ReservationID  string    `db:"reservation_id"`
	TripID         string    `db:"trip_id"`
	OwnerID        string    `db:"owner_id"`
	ScheduledStart time.Time `db:"scheduled_start"`
}
