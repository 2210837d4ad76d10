package constants

// FlightStatus is the freshness status tracked for a flight reservation.
type FlightStatus string

const (
	FlightStatusUnknown   FlightStatus = "unknown"
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusActive    FlightStatus = "active"
	FlightStatusLanded    FlightStatus = "landed"
	FlightStatusCancelled FlightStatus = "cancelled"
	FlightStatusDiverted  FlightStatus = "diverted"
)

// IsTerminal reports whether no further status changes are expected.
func (s FlightStatus) IsTerminal() bool {
	return s == FlightStatusLanded || s == FlightStatusCancelled
}

// ParseFlightStatus maps a raw string onto the status enum.
// Anything unrecognised collapses to unknown rather than failing.
func ParseFlightStatus(raw string) FlightStatus {
	switch FlightStatus(raw) {
	case FlightStatusScheduled, FlightStatusActive, FlightStatusLanded,
		FlightStatusCancelled, FlightStatusDiverted:
		return FlightStatus(raw)
	default:
		return FlightStatusUnknown
	}
}

// Reservation type tags. Only flights are freshness-tracked.
const (
	ReservationTypeFlight = "flight"
	ReservationTypeHotel  = "hotel"
	ReservationTypeRental = "rental"
)
