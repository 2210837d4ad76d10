package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/models/dtos"
)

// Mock InboxScanner
type mockScanner struct {
	scanFunc func(ctx context.Context, accountID string) (*dtos.ScanResult, error)
}

func (m *mockScanner) Scan(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
	return m.scanFunc(ctx, accountID)
}

// Mock HistoryStore
type mockHistory struct {
	records  int32
	lastSync *time.Time
}

func (m *mockHistory) RecordSync(ctx context.Context, accountID string, event string) error {
	atomic.AddInt32(&m.records, 1)
	now := time.Now()
	m.lastSync = &now
	return nil
}

func (m *mockHistory) GetLastSyncTime(ctx context.Context, accountID string, event string) (*time.Time, error) {
	return m.lastSync, nil
}

func testPolicy() Policy {
	return Policy{
		Cooldown:      time.Hour,
		ClientTimeout: 10 * time.Second,
		SafetyReset:   20 * time.Second,
		Phases: []Phase{
			{Message: "Starting…", Delay: 10 * time.Millisecond},
			{Message: "Almost done…", Delay: 0},
		},
	}
}

// waitIdle polls the snapshot until the session clears or the deadline hits.
func waitIdle(t *testing.T, o *Orchestrator, within time.Duration) SessionView {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if view := o.Snapshot(); !view.IsSyncing {
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Session did not go idle within %v", within)
	return SessionView{}
}

func TestStartSyncRejectsConcurrentSession(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			<-release
			return &dtos.ScanResult{}, nil
		},
	}
	o := NewOrchestrator(scanner, &mockHistory{}, testPolicy())

	if err := o.StartSync(context.Background(), "acct-1"); err != nil {
		t.Fatalf("First start should succeed, got %v", err)
	}

	// A second sync is refused even for a different account: one session
	// per client process.
	if err := o.StartSync(context.Background(), "acct-2"); !errors.Is(err, common.ErrSyncInProgress) {
		t.Errorf("Expected ErrSyncInProgress, got %v", err)
	}
}

func TestStartSyncCooldownRejection(t *testing.T) {
	now := time.Now()
	history := &mockHistory{lastSync: &now}

	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			t.Error("Scan should not run inside the cooldown window")
			return nil, nil
		},
	}
	o := NewOrchestrator(scanner, history, testPolicy())

	err := o.StartSync(context.Background(), "acct-1")
	rl, ok := common.IsRateLimited(err)
	if !ok {
		t.Fatalf("Expected RateLimitedError, got %v", err)
	}
	if rl.RetryAfterSeconds() < 1 {
		t.Errorf("Expected a positive retry-after, got %d", rl.RetryAfterSeconds())
	}
	if o.Snapshot().IsSyncing {
		t.Error("A rejected start must not leave a session behind")
	}
}

func TestJobSuccessFinishesSession(t *testing.T) {
	history := &mockHistory{}
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			return &dtos.ScanResult{TripsCreated: 2, EmailsProcessed: 40}, nil
		},
	}
	o := NewOrchestrator(scanner, history, testPolicy())

	if err := o.StartSync(context.Background(), "acct-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	view := waitIdle(t, o, 2*time.Second)
	if view.LastOutcome != OutcomeSuccess {
		t.Errorf("Expected success outcome, got %q", view.LastOutcome)
	}
	if got := atomic.LoadInt32(&history.records); got != 1 {
		t.Errorf("Expected exactly 1 history record, got %d", got)
	}
}

func TestSafetyResetForcesIdleExactlyOnce(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// The job never resolves and the client timeout is far away; only the
	// safety timer can clear the session.
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			<-release
			return nil, errors.New("never reached in time")
		},
	}
	history := &mockHistory{}

	policy := testPolicy()
	policy.SafetyReset = 30 * time.Millisecond
	o := NewOrchestrator(scanner, history, policy)

	if err := o.StartSync(context.Background(), "acct-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	view := waitIdle(t, o, 2*time.Second)
	if view.LastOutcome != OutcomeReset {
		t.Errorf("Expected reset outcome, got %q", view.LastOutcome)
	}
	if got := atomic.LoadInt32(&history.records); got != 1 {
		t.Errorf("Expected exactly 1 history record, got %d", got)
	}
	if o.Snapshot().IsSyncing {
		t.Error("isSyncing must read false after the safety reset")
	}
}

func TestLateSettlementAfterClientTimeoutIsNoOp(t *testing.T) {
	jobDone := make(chan struct{})
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			<-jobDone
			return &dtos.ScanResult{TripsCreated: 5}, nil
		},
	}
	history := &mockHistory{}

	policy := testPolicy()
	policy.ClientTimeout = 30 * time.Millisecond
	o := NewOrchestrator(scanner, history, policy)

	if err := o.StartSync(context.Background(), "acct-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The client wait elapses first: soft success, no error surfaced.
	view := waitIdle(t, o, 2*time.Second)
	if view.LastOutcome != OutcomeTimedOut {
		t.Errorf("Expected timed_out outcome, got %q", view.LastOutcome)
	}
	if view.LastError != "" {
		t.Errorf("A client timeout must not surface an error, got %q", view.LastError)
	}

	// Now let the job settle late. Nothing observable may change.
	close(jobDone)
	time.Sleep(100 * time.Millisecond)

	after := o.Snapshot()
	if after.IsSyncing {
		t.Error("Late settlement must not reopen the session")
	}
	if after.LastOutcome != OutcomeTimedOut {
		t.Errorf("Late settlement changed the outcome to %q", after.LastOutcome)
	}
	if got := atomic.LoadInt32(&history.records); got != 1 {
		t.Errorf("Late settlement stamped history again: %d records", got)
	}
}

func TestJobFailureSurfacesError(t *testing.T) {
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			return nil, common.ErrAuthExpired
		},
	}
	o := NewOrchestrator(scanner, &mockHistory{}, testPolicy())

	if err := o.StartSync(context.Background(), "acct-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	view := waitIdle(t, o, 2*time.Second)
	if view.LastOutcome != OutcomeFailed {
		t.Errorf("Expected failed outcome, got %q", view.LastOutcome)
	}
	if view.LastError == "" {
		t.Error("Expected the auth failure to be visible for the explicit start")
	}
}

func TestPhaseNarrationAdvancesAndSticks(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			<-release
			return &dtos.ScanResult{}, nil
		},
	}
	o := NewOrchestrator(scanner, &mockHistory{}, testPolicy())

	if err := o.StartSync(context.Background(), "acct-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Give the walker time to pass the 10ms first phase and reach the
	// sticky final one.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if o.Snapshot().PhaseMessage == "Almost done…" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	view := o.Snapshot()
	if !view.IsSyncing {
		t.Fatal("Session should still be running while the job is held")
	}
	if view.PhaseMessage != "Almost done…" {
		t.Errorf("Expected sticky final phase, got %q", view.PhaseMessage)
	}
}

func TestSubscribeObservesCompletion(t *testing.T) {
	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			return &dtos.ScanResult{}, nil
		},
	}
	o := NewOrchestrator(scanner, &mockHistory{}, testPolicy())

	id, ch := o.Subscribe()
	defer o.Unsubscribe(id)

	if err := o.StartSync(context.Background(), "acct-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitIdle(t, o, 2*time.Second)

	// Drain whatever views arrived; the last one must show idle.
	var last SessionView
	gotAny := false
	for {
		select {
		case view := <-ch:
			last = view
			gotAny = true
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}

	if !gotAny {
		t.Fatal("Expected at least one observed view")
	}
	if last.IsSyncing {
		t.Error("Final observed view should be idle")
	}
}
