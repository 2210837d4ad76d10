// Package freshness owns the flight status record embedded in a
// reservation's free-form details bag, and the policy deciding how often a
// flight should be polled. It performs no I/O.
package freshness

import (
	"encoding/json"
	"time"

	"wayfarer/tripdesk/internal/constants"
)

// ReservedKey is the single key this package owns inside a reservation's
// details bag. The leading underscore keeps it out of the way of
// user-supplied detail fields; everything else in the bag is opaque to us.
const ReservedKey = "_flight_status"

// DefaultSource tags records produced by the built-in status provider.
const DefaultSource = "flightwatch"

// Record is the cached freshness state for one flight reservation. A record
// is either absent from the bag or fully formed; it is always replaced
// wholesale, never mutated field by field.
type Record struct {
	Status            constants.FlightStatus `json:"status"`
	DepartureGate     string                 `json:"departure_gate,omitempty"`
	DepartureTerminal string                 `json:"departure_terminal,omitempty"`
	ArrivalGate       string                 `json:"arrival_gate,omitempty"`
	ArrivalTerminal   string                 `json:"arrival_terminal,omitempty"`
	CheckedAt         time.Time              `json:"checked_at"`
	Source            string                 `json:"source"`
}

// NewerThan reports whether r was checked strictly after other. Used to
// discard a slow response that arrives after a fresher one already landed.
func (r Record) NewerThan(other Record) bool {
	return r.CheckedAt.After(other.CheckedAt)
}

// Decode reads the reserved key out of a details bag. A missing or
// malformed entry returns ok=false; corrupt cache data must never surface
// as an error to the UI.
func Decode(details map[string]interface{}) (Record, bool) {
	if details == nil {
		return Record{}, false
	}

	raw, found := details[ReservedKey]
	if !found {
		return Record{}, false
	}

	// The bag has usually been through a JSON round trip, so the entry is a
	// map[string]interface{}. Re-marshalling is the simplest way to coerce
	// it back into a Record without trusting its shape.
	data, err := json.Marshal(raw)
	if err != nil {
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false
	}

	if rec.CheckedAt.IsZero() {
		return Record{}, false
	}

	rec.Status = constants.ParseFlightStatus(string(rec.Status))
	return rec, true
}

// Encode returns a copy of the details bag with the reserved key replaced
// wholesale by rec. All other keys are carried over untouched; the input
// bag is not modified.
func Encode(details map[string]interface{}, rec Record) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		if k == ReservedKey {
			continue
		}
		out[k] = v
	}

	// Store as a plain map so the bag stays serializable no matter which
	// layer marshals it next.
	data, err := json.Marshal(rec)
	if err != nil {
		// A Record has no unmarshalable fields, so this cannot happen; keep
		// the old bag intact if it somehow does.
		return out
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(data, &entry); err != nil {
		return out
	}

	out[ReservedKey] = entry
	return out
}
