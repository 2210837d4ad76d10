package freshness

import (
	"testing"
	"time"

	"wayfarer/tripdesk/internal/constants"
)

func sampleRecord() Record {
	return Record{
		Status:            constants.FlightStatusActive,
		DepartureGate:     "B12",
		DepartureTerminal: "2",
		ArrivalGate:       "C4",
		ArrivalTerminal:   "1",
		CheckedAt:         time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Source:            DefaultSource,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	details := map[string]interface{}{
		"confirmation": "ABC123",
		"seat":         "14F",
		"notes":        map[string]interface{}{"meal": "vegetarian"},
	}

	rec := sampleRecord()
	encoded := Encode(details, rec)

	got, ok := Decode(encoded)
	if !ok {
		t.Fatal("expected decode to find the record")
	}
	if got.Status != rec.Status {
		t.Errorf("status: got %q, want %q", got.Status, rec.Status)
	}
	if got.DepartureGate != rec.DepartureGate || got.ArrivalGate != rec.ArrivalGate {
		t.Errorf("gates: got %q/%q, want %q/%q",
			got.DepartureGate, got.ArrivalGate, rec.DepartureGate, rec.ArrivalGate)
	}
	if !got.CheckedAt.Equal(rec.CheckedAt) {
		t.Errorf("checked_at: got %v, want %v", got.CheckedAt, rec.CheckedAt)
	}
	if got.Source != rec.Source {
		t.Errorf("source: got %q, want %q", got.Source, rec.Source)
	}
}

func TestEncodePreservesOtherKeys(t *testing.T) {
	details := map[string]interface{}{
		"confirmation": "ABC123",
		"seat":         "14F",
	}

	encoded := Encode(details, sampleRecord())

	if encoded["confirmation"] != "ABC123" || encoded["seat"] != "14F" {
		t.Errorf("non-reserved keys were not preserved: %v", encoded)
	}
	if _, found := details[ReservedKey]; found {
		t.Error("Encode mutated its input bag")
	}
}

func TestEncodeReplacesReservedKeyWholesale(t *testing.T) {
	old := sampleRecord()
	old.DepartureGate = "A1"
	details := Encode(map[string]interface{}{}, old)

	next := sampleRecord()
	next.DepartureGate = "" // gate no longer known upstream
	encoded := Encode(details, next)

	got, ok := Decode(encoded)
	if !ok {
		t.Fatal("expected decode to find the record")
	}
	if got.DepartureGate != "" {
		t.Errorf("stale field leaked through wholesale replace: %q", got.DepartureGate)
	}
}

func TestDecodeMissingKey(t *testing.T) {
	if _, ok := Decode(map[string]interface{}{"seat": "14F"}); ok {
		t.Error("expected absent record for bag without reserved key")
	}
	if _, ok := Decode(nil); ok {
		t.Error("expected absent record for nil bag")
	}
}

func TestDecodeMalformedEntry(t *testing.T) {
	cases := []interface{}{
		"not an object",
		42,
		[]interface{}{"a", "b"},
		map[string]interface{}{"status": []interface{}{1, 2}},
		map[string]interface{}{"status": "active"}, // no checked_at
		map[string]interface{}{"checked_at": "not-a-time"},
	}

	for _, entry := range cases {
		bag := map[string]interface{}{ReservedKey: entry}
		if _, ok := Decode(bag); ok {
			t.Errorf("expected malformed entry %v to decode as absent", entry)
		}
	}
}

func TestDecodeUnknownStatusCollapses(t *testing.T) {
	bag := map[string]interface{}{
		ReservedKey: map[string]interface{}{
			"status":     "teleported",
			"checked_at": "2026-03-14T09:26:53Z",
			"source":     "test",
		},
	}

	rec, ok := Decode(bag)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if rec.Status != constants.FlightStatusUnknown {
		t.Errorf("got status %q, want unknown", rec.Status)
	}
}

func TestNewerThan(t *testing.T) {
	older := sampleRecord()
	newer := sampleRecord()
	newer.CheckedAt = older.CheckedAt.Add(time.Minute)

	if !newer.NewerThan(older) {
		t.Error("newer record should compare newer")
	}
	if older.NewerThan(newer) {
		t.Error("older record should not compare newer")
	}
	if older.NewerThan(older) {
		t.Error("equal timestamps should not compare newer")
	}
}
