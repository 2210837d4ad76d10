package api

import (
	"errors"
	"net/http"
	"time"

	"wayfarer/tripdesk/internal/auth"
	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps: deps,
	}
}

// TripStatus handles GET /api/v1/trips/{trip_id}/status. It reads the
// cached freshness records for the trip without touching the network.
func (h *Handlers) TripStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		tripID := chi.URLParam(r, "trip_id")
		if tripID == "" {
			common.RespondError(w, initTime, nil, "Missing trip_id", http.StatusBadRequest)
			return
		}

		if err := h.authorizeTrip(r, tripID); err != nil {
			common.RespondError(w, initTime, nil, "Trip not found", http.StatusNotFound)
			return
		}

		snap, err := h.deps.Services.Poller.Snapshot(r.Context(), tripID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to read trip status", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Trip status", dtos.TripStatusResponse{
			TripID:    tripID,
			PerEntity: snap.Records,
		})
	}
}

// RefreshTrip handles POST /api/v1/trips/{trip_id}/refresh. It forces one
// refresh through the shared aggregation entry point; concurrent requests
// for the same trip are coalesced into a single upstream call.
func (h *Handlers) RefreshTrip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		reg := h.deps.Metrics

		tripID := chi.URLParam(r, "trip_id")
		if tripID == "" {
			common.RespondError(w, initTime, nil, "Missing trip_id", http.StatusBadRequest)
			return
		}

		if err := h.authorizeTrip(r, tripID); err != nil {
			common.RespondError(w, initTime, nil, "Trip not found", http.StatusNotFound)
			return
		}

		records, err := h.deps.Services.Poller.RefreshNow(r.Context(), tripID)
		reg.AggregateCallLatency.WithLabelValues("trip").Observe(time.Since(initTime).Seconds())

		if err != nil {
			if rl, ok := common.IsRateLimited(err); ok {
				reg.RefreshRequestsTotal.WithLabelValues("rate_limited").Inc()
				common.RespondSuccess(w, initTime, "Status is fresh enough, try again shortly",
					dtos.RateLimitedResponse{RetryAfterSeconds: rl.RetryAfterSeconds()},
					http.StatusTooManyRequests)
				return
			}
			if errors.Is(err, common.ErrUpstreamUnavailable) {
				reg.RefreshRequestsTotal.WithLabelValues("upstream_error").Inc()
				common.RespondError(w, initTime, err, "Status provider unavailable", http.StatusBadGateway)
				return
			}
			reg.RefreshRequestsTotal.WithLabelValues("error").Inc()
			common.RespondError(w, initTime, err, "Refresh failed", http.StatusInternalServerError)
			return
		}

		reg.RefreshRequestsTotal.WithLabelValues("ok").Inc()
		common.RespondSuccess(w, initTime, "Statuses refreshed", dtos.TripStatusResponse{
			TripID:    tripID,
			PerEntity: records,
		})
	}
}

// StartSync handles POST /api/v1/sync. It kicks off the inbox scan for the
// calling account and returns immediately; progress is read from SyncStatus.
func (h *Handlers) StartSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		reg := h.deps.Metrics

		claims := auth.GetAccountClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized", http.StatusUnauthorized)
			return
		}

		err := h.deps.Services.Syncer.StartSync(r.Context(), claims.AccountID)
		if err != nil {
			if errors.Is(err, common.ErrSyncInProgress) {
				reg.SyncStartsTotal.WithLabelValues("busy").Inc()
				common.RespondError(w, initTime, nil, "A sync is already running", http.StatusConflict)
				return
			}
			if rl, ok := common.IsRateLimited(err); ok {
				reg.SyncStartsTotal.WithLabelValues("rate_limited").Inc()
				common.RespondSuccess(w, initTime, "Synced recently, try again later",
					dtos.RateLimitedResponse{RetryAfterSeconds: rl.RetryAfterSeconds()},
					http.StatusTooManyRequests)
				return
			}
			reg.SyncStartsTotal.WithLabelValues("error").Inc()
			common.RespondError(w, initTime, err, "Failed to start sync", http.StatusInternalServerError)
			return
		}

		reg.SyncStartsTotal.WithLabelValues("ok").Inc()
		common.RespondSuccess(w, initTime, "Sync started", h.deps.Services.Syncer.Snapshot(), http.StatusAccepted)
	}
}

// SyncStatus handles GET /api/v1/sync/status. It returns the narrated
// session view the UI polls while a sync runs.
func (h *Handlers) SyncStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		common.RespondSuccess(w, initTime, "Sync status", h.deps.Services.Syncer.Snapshot())
	}
}

// authorizeTrip rejects access to trips the calling account does not own.
// Internal API-key callers skip the ownership check.
func (h *Handlers) authorizeTrip(r *http.Request, tripID string) error {
	claims := auth.GetAccountClaims(r.Context())
	if claims == nil {
		return errors.New("no account in context")
	}
	if claims.Source == "api_key" {
		return nil
	}

	ownerID, err := h.deps.Repo.Trips.GetOwnerID(r.Context(), tripID)
	if err != nil {
		return err
	}
	if ownerID == "" || ownerID != claims.AccountID {
		return errors.New("trip does not belong to account")
	}
	return nil
}
