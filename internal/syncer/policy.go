package syncer

import "time"

// Phase is one step of the narrated progress schedule: show Message, wait
// Delay, advance. A zero Delay marks the sticky final phase.
type Phase struct {
	Message string
	Delay   time.Duration
}

// Policy holds the timing knobs for the sync state machine.
type Policy struct {
	// Cooldown is the minimum gap between sync attempts per account.
	Cooldown time.Duration

	// ClientTimeout is how long the client waits on the job before
	// reporting it as started-and-still-running. The job itself is not
	// cancelled.
	ClientTimeout time.Duration

	// SafetyReset unconditionally forces the session idle. It exists so
	// the UI can never show "syncing" forever, even if the transport layer
	// misbehaves and neither the job nor the timeout ever settles.
	SafetyReset time.Duration

	// Phases is the narrated progress schedule.
	Phases []Phase
}

// DefaultPhases gives the user a sense of motion for a job that reports no
// real progress. Timings are tuned to a typical scan, not measured from it.
var DefaultPhases = []Phase{
	{Message: "Connecting to your inbox…", Delay: 3 * time.Second},
	{Message: "Scanning recent messages…", Delay: 12 * time.Second},
	{Message: "Extracting reservations…", Delay: 20 * time.Second},
	{Message: "Building your trips…", Delay: 25 * time.Second},
	{Message: "Almost done…", Delay: 0},
}

// DefaultPolicy is the reference timing policy.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown:      5 * time.Minute,
		ClientTimeout: 90 * time.Second,
		SafetyReset:   2 * time.Minute,
		Phases:        DefaultPhases,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Cooldown <= 0 {
		p.Cooldown = def.Cooldown
	}
	if p.ClientTimeout <= 0 {
		p.ClientTimeout = def.ClientTimeout
	}
	if p.SafetyReset <= 0 {
		p.SafetyReset = def.SafetyReset
	}
	if len(p.Phases) == 0 {
		p.Phases = def.Phases
	}
	return p
}
