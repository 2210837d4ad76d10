package dtos

import "wayfarer/tripdesk/internal/freshness"

// APIResponse is the standard envelope for all JSON endpoints.
type APIResponse struct {
	Status       string      `json:"status"`
	Message      string      `json:"message,omitempty"`
	ResponseTime string      `json:"response_time,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// AggregateResult is what the aggregation entry point returns: the merged
// freshness record per reservation ID.
type AggregateResult struct {
	PerEntity map[string]freshness.Record `json:"per_entity"`
	HasMore   bool                        `json:"has_more,omitempty"`
}

// ScanResult is the outcome of one inbox scan job.
type ScanResult struct {
	TripsCreated        int  `json:"trips_created"`
	ReservationsCreated int  `json:"reservations_created"`
	EmailsProcessed     int  `json:"emails_processed"`
	HasMore             bool `json:"has_more,omitempty"`
}

// SyncStatusResponse mirrors the client-visible sync session.
type SyncStatusResponse struct {
	IsSyncing    bool   `json:"is_syncing"`
	PhaseMessage string `json:"phase_message,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
}

// RateLimitedResponse carries the wait time for a refused call so the UI
// can show "please wait N seconds" instead of a generic error.
type RateLimitedResponse struct {
	RetryAfterSeconds int `json:"retry_after_seconds"`
}

// TripStatusResponse is the snapshot of cached records for one trip.
type TripStatusResponse struct {
	TripID    string                      `json:"trip_id"`
	PerEntity map[string]freshness.Record `json:"per_entity"`
}
