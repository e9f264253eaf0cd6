package answer

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

// RunState tracks one orchestration run through its lifecycle.
type RunState int32

// Run lifecycle states.
const (
	RunIdle RunState = iota
	RunRunning
	RunCompleted
	RunCancelled
	RunFailed
)

// String renders the state for logs.
func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "idle"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunCancelled:
		return "cancelled"
	case RunFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Run is one orchestration attempt: a cancellable context plus a state
// machine. The context's cancel cause carries the typed cancellation
// error, so checkpoints can tell a user cancel from a superseding
// query.
type Run struct {
	id      string
	session string
	ctx     context.Context
	cancel  context.CancelCauseFunc
	state   atomic.Int32
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// Session returns the logical session the run belongs to.
func (r *Run) Session() string { return r.session }

// Context is the run token: every network call in the run observes it.
func (r *Run) Context() context.Context { return r.ctx }

// State returns the run's current lifecycle state.
func (r *Run) State() RunState { return RunState(r.state.Load()) }

// transition moves the state machine from from to to, reporting
// whether the move happened.
func (r *Run) transition(from, to RunState) bool {
	return r.state.CompareAndSwap(int32(from), int32(to))
}

// Cancel aborts the run with the given typed cause. The first cause
// wins; cancelling an already finished run leaves its state alone.
func (r *Run) Cancel(cause *sageerrors.SageError) {
	r.cancel(cause)
	if !r.transition(RunRunning, RunCancelled) {
		r.transition(RunIdle, RunCancelled)
	}
}

// finish records the run's terminal state from its outcome and
// releases the run context.
func (r *Run) finish(err error) {
	switch {
	case err == nil:
		r.transition(RunRunning, RunCompleted)
	case sageerrors.IsCancelled(err):
		r.transition(RunRunning, RunCancelled)
	default:
		r.transition(RunRunning, RunFailed)
	}
	r.cancel(nil)
}

// DefaultSession names the session used when callers do not manage
// their own.
const DefaultSession = "default"

// SessionRegistry tracks the active run per logical search session and
// enforces the supersede rule: beginning a new run for a session
// cancels the previous one before the new run does any work.
type SessionRegistry struct {
	mu   sync.Mutex
	runs map[string]*Run
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{runs: make(map[string]*Run)}
}

// Begin creates and starts a run for the session, cancelling any prior
// run still in flight. The supersede cancellation is applied
// synchronously before the new run is returned, so the old run can
// never race the new run's network calls.
func (r *SessionRegistry) Begin(ctx context.Context, session, query string) *Run {
	if session == "" {
		session = DefaultSession
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	run := &Run{
		id:      uuid.NewString(),
		session: session,
		ctx:     runCtx,
		cancel:  cancel,
	}

	r.mu.Lock()
	prior := r.runs[session]
	r.runs[session] = run
	r.mu.Unlock()

	if prior != nil {
		prior.Cancel(sageerrors.SupersededError(query))
	}

	run.transition(RunIdle, RunRunning)
	return run
}

// Cancel aborts the session's active run, if any, reporting whether a
// run was cancelled.
func (r *SessionRegistry) Cancel(session string) bool {
	if session == "" {
		session = DefaultSession
	}

	r.mu.Lock()
	run := r.runs[session]
	r.mu.Unlock()

	if run == nil || run.State() != RunRunning {
		return false
	}
	run.Cancel(sageerrors.CancelledError("search cancelled"))
	return true
}

// Active returns the session's registered run, or nil.
func (r *SessionRegistry) Active(session string) *Run {
	if session == "" {
		session = DefaultSession
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[session]
}

// release drops the registry entry if run is still the session's
// current run.
func (r *SessionRegistry) release(run *Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs[run.session] == run {
		delete(r.runs, run.session)
	}
}

// checkpoint classifies context state into the run's typed errors. It
// runs immediately before and after every network call, so a cancelled
// run stops at the next suspension point with a distinguishable error
// rather than a step's normal failure.
func checkpoint(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	var se *sageerrors.SageError
	if stderrors.As(cause, &se) {
		return se
	}
	if stderrors.Is(cause, context.DeadlineExceeded) {
		return sageerrors.New(sageerrors.ErrCodeNetworkTimeout, "search run timed out", cause)
	}
	return sageerrors.New(sageerrors.ErrCodeCancelled, "search cancelled", cause)
}
