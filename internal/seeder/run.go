package seeder

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/yuri-schmaltz/tileseed/pkg/tile"
)

// State is the phase of a seeding run.
type State int32

const (
	StateIdle State = iota
	StateComputingMissing
	StateDownloading
	StateFlushing
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComputingMissing:
		return "computing-missing"
	case StateDownloading:
		return "downloading"
	case StateFlushing:
		return "flushing"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// TileError records the failure of a single tile.
type TileError struct {
	Key tile.Key
	Err error
}

func (e TileError) Error() string { return fmt.Sprintf("tile %s: %v", e.Key, e.Err) }
func (e TileError) Unwrap() error { return e.Err }

// Summary is the final accounting of a run. Cached counts only tiles that
// were durably flushed to the store.
type Summary struct {
	Requested     int
	AlreadyCached int
	Cached        int
	Failed        int
	Cancelled     int
	Failures      []TileError
}

// Progress is a point-in-time snapshot of a run.
type Progress struct {
	State     State
	Completed int
	Total     int
	Errors    int
}

// Run is the handle to one seeding run. Safe for concurrent use.
type Run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	completed atomic.Int64
	total     atomic.Int64
	errs      atomic.Int64

	done chan struct{}

	// summary and err are written only by the executing goroutine and read
	// by others after done is closed.
	summary Summary
	err     error
}

func newRun(ctx context.Context) *Run {
	ctx, cancel := context.WithCancel(ctx)
	r := &Run{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.state.Store(int32(StateIdle))
	return r
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// State returns the current phase.
func (r *Run) State() State { return State(r.state.Load()) }

// Progress returns a snapshot of the run.
func (r *Run) Progress() Progress {
	return Progress{
		State:     r.State(),
		Completed: int(r.completed.Load()),
		Total:     int(r.total.Load()),
		Errors:    int(r.errs.Load()),
	}
}

// Cancel requests cooperative cancellation. Idempotent; a no-op once the
// run reached a terminal state.
func (r *Run) Cancel() { r.cancel() }

// Wait blocks until the run reaches a terminal state or ctx ends. It
// returns the final summary and, for a Failed run, the fatal error.
func (r *Run) Wait(ctx context.Context) (Summary, error) {
	select {
	case <-r.done:
		return r.summary, r.err
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

func (r *Run) setState(s State) { r.state.Store(int32(s)) }

func (r *Run) fail(err error) {
	r.err = err
	r.setState(StateFailed)
}

func (r *Run) finish() {
	r.cancel()
	close(r.done)
}
