// Package syncer drives the long-running inbox scan job from the client's
// point of view: a single global sync session, narrated progress phases,
// a client-side wait raced against the job, and a hard guarantee that the
// "syncing" flag always comes back down.
package syncer

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/constants"
	"wayfarer/tripdesk/internal/models/dtos"
)

// InboxScanner is the server-side scan job as the orchestrator sees it:
// one blocking call, no incremental progress.
type InboxScanner interface {
	Scan(ctx context.Context, accountID string) (*dtos.ScanResult, error)
}

// HistoryStore records sync attempts and feeds the cooldown window.
// Satisfied by repositories.SyncHistoryRepo.
type HistoryStore interface {
	RecordSync(ctx context.Context, accountID string, event string) error
	GetLastSyncTime(ctx context.Context, accountID string, event string) (*time.Time, error)
}

// Outcome labels for the last finished session.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeTimedOut = "timed_out"
	OutcomeReset    = "reset"
)

// Session is the in-memory state of one active sync. Exactly one session
// exists per client process at a time.
type session struct {
	accountID  string
	phase      int
	phaseMsg   string
	startedAt  time.Time
	finished   atomic.Int32
	phaseStop  context.CancelFunc
	safety     *time.Timer
}

// SessionView is the observable snapshot handed to the UI.
type SessionView struct {
	IsSyncing    bool      `json:"is_syncing"`
	AccountID    string    `json:"account_id,omitempty"`
	PhaseMessage string    `json:"phase_message,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	LastOutcome  string    `json:"last_outcome,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Orchestrator owns the sync session state machine. Construct one per
// process and share it; it is not a package-level global so tests can run
// independent instances.
type Orchestrator struct {
	scanner InboxScanner
	history HistoryStore
	policy  Policy

	mu          sync.Mutex
	active      *session
	lastOutcome string
	lastError   string
	subs        map[int]chan SessionView
	nextSubID   int
}

// NewOrchestrator creates a sync orchestrator with the given policy.
func NewOrchestrator(scanner InboxScanner, history HistoryStore, policy Policy) *Orchestrator {
	policy = policy.withDefaults()
	return &Orchestrator{
		scanner: scanner,
		history: history,
		policy:  policy,
		subs:    make(map[int]chan SessionView),
	}
}

// StartSync begins a sync for the account. It returns immediately; progress
// and completion are observed through Snapshot/Subscribe. Rejected with
// ErrSyncInProgress while any session is active, or with a RateLimitedError
// when the account's cooldown window has not elapsed.
func (o *Orchestrator) StartSync(ctx context.Context, accountID string) error {
	o.mu.Lock()
	if o.active != nil {
		o.mu.Unlock()
		return common.ErrSyncInProgress
	}
	o.mu.Unlock()

	last, err := o.history.GetLastSyncTime(ctx, accountID, constants.SyncEventInboxScan)
	if err != nil {
		log.Printf("[Syncer] Failed to read sync history for %s, allowing sync: %v", accountID, err)
	}
	if last != nil {
		if since := time.Since(*last); since < o.policy.Cooldown {
			return &common.RateLimitedError{RetryAfter: o.policy.Cooldown - since}
		}
	}

	o.mu.Lock()
	// Re-check under the lock; another caller may have won the race above.
	if o.active != nil {
		o.mu.Unlock()
		return common.ErrSyncInProgress
	}

	phaseCtx, phaseStop := context.WithCancel(context.Background())
	sess := &session{
		accountID: accountID,
		startedAt: time.Now(),
		phaseStop: phaseStop,
	}
	o.active = sess
	o.mu.Unlock()

	log.Printf("[Syncer] Starting inbox sync for account %s", accountID)

	// Last-resort guard: force the session idle even if both the job and
	// the timeout race somehow never settle.
	sess.safety = time.AfterFunc(o.policy.SafetyReset, func() {
		log.Printf("[Syncer] Safety reset fired for account %s", accountID)
		o.finish(sess, OutcomeReset, "")
	})

	go o.walkPhases(phaseCtx, sess)
	go o.runJob(sess)

	return nil
}

// runJob launches the scan and races it against the client-side wait.
// Whichever settles first finishes the session; the loser is discarded,
// never cancelled. The job context deliberately ignores the wait so the
// server-side work can run to completion and land its data either way.
func (o *Orchestrator) runJob(sess *session) {
	type jobResult struct {
		result *dtos.ScanResult
		err    error
	}
	resCh := make(chan jobResult, 1)

	go func() {
		result, err := o.scanner.Scan(context.Background(), sess.accountID)
		resCh <- jobResult{result: result, err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			log.Printf("[Syncer] Account %s: scan failed: %v", sess.accountID, res.err)
			o.finish(sess, OutcomeFailed, res.err.Error())
			return
		}
		log.Printf("[Syncer] Account %s: scan complete: %d trips, %d reservations, %d emails",
			sess.accountID, res.result.TripsCreated, res.result.ReservationsCreated, res.result.EmailsProcessed)
		o.finish(sess, OutcomeSuccess, "")

	case <-time.After(o.policy.ClientTimeout):
		// Soft success: the job is almost certainly still running
		// server-side and its results will show up on the next read.
		log.Printf("[Syncer] Account %s: client wait elapsed, treating as started", sess.accountID)
		o.finish(sess, OutcomeTimedOut, "")

		// Drain the late settlement so the goroutine exits; its result is
		// logged and dropped.
		go func() {
			res := <-resCh
			if res.err != nil {
				log.Printf("[Syncer] Account %s: late scan settlement (error) dropped: %v", sess.accountID, res.err)
			} else {
				log.Printf("[Syncer] Account %s: late scan settlement dropped: %d trips created server-side",
					sess.accountID, res.result.TripsCreated)
			}
		}()
	}
}

// walkPhases advances the narrated progress message on the declarative
// phase schedule. The final phase has no delay and sticks until the
// session finishes.
func (o *Orchestrator) walkPhases(ctx context.Context, sess *session) {
	for i, ph := range o.policy.Phases {
		o.mu.Lock()
		if o.active != sess {
			o.mu.Unlock()
			return
		}
		sess.phase = i
		sess.phaseMsg = ph.Message
		view := o.snapshotLocked()
		o.mu.Unlock()
		o.notify(view)

		if ph.Delay <= 0 {
			return // sticky final phase
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(ph.Delay):
		}
	}
}

// finish transitions the session to idle exactly once. Later settlements
// for the same session are logged and dropped.
func (o *Orchestrator) finish(sess *session, outcome string, errMsg string) {
	if !sess.finished.CompareAndSwap(0, 1) {
		log.Printf("[Syncer] Account %s: duplicate finish (%s) ignored", sess.accountID, outcome)
		return
	}

	sess.phaseStop()
	if sess.safety != nil {
		sess.safety.Stop()
	}

	// Every completed attempt stamps the history, success or not, so a
	// failing job cannot be retried in a tight loop.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.history.RecordSync(ctx, sess.accountID, constants.SyncEventInboxScan); err != nil {
		log.Printf("[Syncer] Account %s: failed to record sync history: %v", sess.accountID, err)
	}

	o.mu.Lock()
	if o.active == sess {
		o.active = nil
	}
	o.lastOutcome = outcome
	o.lastError = errMsg
	view := o.snapshotLocked()
	o.mu.Unlock()

	log.Printf("[Syncer] Account %s: session finished (%s) after %s",
		sess.accountID, outcome, time.Since(sess.startedAt).Truncate(time.Millisecond))
	o.notify(view)
}

// Snapshot returns the current observable sync state.
func (o *Orchestrator) Snapshot() SessionView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() SessionView {
	if o.active == nil {
		return SessionView{
			IsSyncing:   false,
			LastOutcome: o.lastOutcome,
			LastError:   o.lastError,
		}
	}
	return SessionView{
		IsSyncing:    true,
		AccountID:    o.active.accountID,
		PhaseMessage: o.active.phaseMsg,
		StartedAt:    o.active.startedAt,
		LastOutcome:  o.lastOutcome,
		LastError:    o.lastError,
	}
}

// Subscribe registers an observer for session changes. The returned id is
// passed to Unsubscribe. Slow observers only ever miss intermediate states;
// the channel always holds the latest view.
func (o *Orchestrator) Subscribe() (int, <-chan SessionView) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSubID
	o.nextSubID++
	ch := make(chan SessionView, 1)
	o.subs[id] = ch
	return id, ch
}

// Unsubscribe removes an observer.
func (o *Orchestrator) Unsubscribe(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ch, ok := o.subs[id]; ok {
		delete(o.subs, id)
		close(ch)
	}
}

// notify fans a view out to subscribers without blocking; a pending unread
// view is replaced by the newer one.
func (o *Orchestrator) notify(view SessionView) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- view:
			default:
			}
		}
	}
}
