package common

import (
	"fmt"
	"time"
)

// GetResponseTime formats the elapsed time since initTime for API envelopes.
func GetResponseTime(initTime time.Time) string {
	return fmt.Sprintf("%dms", time.Since(initTime).Milliseconds())
}
