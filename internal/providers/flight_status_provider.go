package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/constants"
	"wayfarer/tripdesk/internal/freshness"
)

// FlightQuery identifies one flight to the upstream status API.
type FlightQuery struct {
	ReservationID string    `json:"reservation_id"`
	Airline       string    `json:"airline,omitempty"`
	FlightNumber  string    `json:"flight_number,omitempty"`
	Departure     time.Time `json:"departure"`
}

// FlightStatusProvider calls the third-party flight status API. The payload
// shape is opaque to the rest of the system; this is the only place that
// knows about it.
type FlightStatusProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewFlightStatusProvider creates a new instance, reading config from environment variables
func NewFlightStatusProvider() *FlightStatusProvider {
	baseURL := os.Getenv("FLIGHT_STATUS_API_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.flightwatch.example.com/v1" // Default
	}
	apiKey := os.Getenv("FLIGHT_STATUS_API_KEY")
	client := &http.Client{Timeout: 15 * time.Second}
	return &FlightStatusProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  client,
	}
}

type statusRequest struct {
	Flights []FlightQuery `json:"flights"`
}

type statusEntry struct {
	Status            string `json:"status"`
	DepartureGate     string `json:"departure_gate"`
	DepartureTerminal string `json:"departure_terminal"`
	ArrivalGate       string `json:"arrival_gate"`
	ArrivalTerminal   string `json:"arrival_terminal"`
}

type statusResponse struct {
	Statuses map[string]statusEntry `json:"statuses"`
}

// FetchStatuses performs one aggregated upstream call covering every flight
// in the batch. Returns a fully-formed record per reservation ID; flights
// the upstream does not know about are simply missing from the map.
func (p *FlightStatusProvider) FetchStatuses(ctx context.Context, flights []FlightQuery) (map[string]freshness.Record, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(statusRequest{Flights: flights}); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/statuses", buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 60 * time.Second
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return nil, &common.RateLimitedError{RetryAfter: retryAfter}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", common.ErrUpstreamUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}

	now := time.Now()
	out := make(map[string]freshness.Record, len(body.Statuses))
	for id, entry := range body.Statuses {
		out[id] = freshness.Record{
			Status:            constants.ParseFlightStatus(entry.Status),
			DepartureGate:     entry.DepartureGate,
			DepartureTerminal: entry.DepartureTerminal,
			ArrivalGate:       entry.ArrivalGate,
			ArrivalTerminal:   entry.ArrivalTerminal,
			CheckedAt:         now,
			Source:            freshness.DefaultSource,
		}
	}
	return out, nil
}
