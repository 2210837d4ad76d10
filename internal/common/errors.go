package common

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitedError is returned when the aggregation entry point refuses a
// call inside the per-owner cooldown window. RetryAfter is the remaining
// wait, rounded up to whole seconds for display.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfterSeconds())
}

// RetryAfterSeconds returns the wait rounded up to at least one second.
func (e *RateLimitedError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

var (
	// ErrUpstreamUnavailable covers third-party API hiccups. Callers retry
	// on the next natural tick, never immediately.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrAuthExpired means the owner's credential to the external source
	// (e.g. their inbox) has lapsed and must be reconnected.
	ErrAuthExpired = errors.New("external account authorization expired")

	// ErrSyncInProgress is returned when a sync session is already active
	// in this process.
	ErrSyncInProgress = errors.New("a sync is already in progress")

	// ErrClientTimeout marks a job that outlived the client-side wait. The
	// server-side job is not cancelled and may still complete.
	ErrClientTimeout = errors.New("timed out waiting for job")
)

// IsRateLimited unwraps err as a RateLimitedError if possible.
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
