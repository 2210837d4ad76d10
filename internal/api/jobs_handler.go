package api

import (
	"log"
	"net/http"
	"time"

	"wayfarer/tripdesk/internal/auth"
	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/jobs"
)

// JobsHandler handles manual job triggering endpoints
type JobsHandler struct {
	fanoutJob *jobs.StatusFanoutJob
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(fanoutJob *jobs.StatusFanoutJob) *JobsHandler {
	return &JobsHandler{
		fanoutJob: fanoutJob,
	}
}

// TriggerStatusFanout runs one fan-out pass immediately instead of waiting
// for the next scheduled tick. Internal tooling only.
func (h *JobsHandler) TriggerStatusFanout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetAccountClaims(r.Context())
		if claims != nil {
			log.Printf("[JobsHandler] Status fan-out manually triggered by %s", claims.AccountID)
		}

		if err := h.fanoutJob.Run(r.Context()); err != nil {
			common.RespondError(w, initTime, err, "Fan-out run failed", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Fan-out pass completed", nil)
	}
}
