package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxWorkers bounds concurrency against remote services. Kept small:
// tile servers throttle aggressive clients well before CPUs become the
// bottleneck.
const DefaultMaxWorkers = 5

// Common errors.
var (
	// ErrTaskTimeout is recorded for a task that exceeded TaskTimeout.
	ErrTaskTimeout = errors.New("pool: task timed out")

	// ErrClosed is returned by Submit after Close or Cancel.
	ErrClosed = errors.New("pool: closed to submissions")
)

// Func is a unit of work. It must honor ctx cancellation on blocking
// operations.
type Func[T any] func(ctx context.Context) (T, error)

// Result is the outcome of one task. Index is the submission order of the
// task, letting callers map results back to their inputs.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Stats summarizes a completed run.
type Stats struct {
	Submitted int
	Succeeded int
	Failed    int
	// Dropped counts tasks that were queued but never started because
	// the run was cancelled.
	Dropped int
}

// Options configures a Pool. Zero values get defaults.
type Options[T any] struct {
	// MaxWorkers is the number of concurrent executors. Default 5.
	MaxWorkers int

	// QueueSize bounds the task queue; Submit blocks while it is full.
	// Default MaxWorkers * 2.
	QueueSize int

	// TaskTimeout is the budget per task; 0 disables the timeout.
	TaskTimeout time.Duration

	// OnResult, when set, receives every task outcome. Called from a
	// single goroutine.
	OnResult func(Result[T])

	// OnProgress, when set, is called after each task completion with
	// the number of completed tasks and the number submitted so far.
	// Called from the same single goroutine as OnResult.
	OnProgress func(completed, total int)

	// Logger for worker-level events. Defaults to a nop logger.
	Logger *zap.Logger
}

type task[T any] struct {
	index int
	fn    Func[T]
}

// Pool is a bounded worker pool. Create with [New], feed with [Submit],
// then [Close] and [Run].
type Pool[T any] struct {
	opts  Options[T]
	tasks chan task[T]

	closeOnce  sync.Once
	cancelOnce sync.Once
	cancelled  chan struct{}

	submitted atomic.Int64
	active    atomic.Int32
	wg        sync.WaitGroup
}

// New creates a pool. Run must be called to execute submitted tasks.
func New[T any](opts Options[T]) *Pool[T] {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.MaxWorkers * 2
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Pool[T]{
		opts:      opts,
		tasks:     make(chan task[T], opts.QueueSize),
		cancelled: make(chan struct{}),
	}
}

// Submit enqueues a task, blocking while the queue is full. It returns
// ErrClosed once the pool is closed or cancelled.
func (p *Pool[T]) Submit(fn Func[T]) error {
	select {
	case <-p.cancelled:
		return ErrClosed
	default:
	}

	t := task[T]{index: int(p.submitted.Add(1)) - 1, fn: fn}
	select {
	case p.tasks <- t:
		return nil
	case <-p.cancelled:
		p.submitted.Add(-1)
		return ErrClosed
	}
}

// Close signals that no more tasks will be submitted. Safe to call once;
// callers coordinate with Submit themselves (the usual shape is a single
// feeder goroutine that submits then closes).
func (p *Pool[T]) Close() {
	p.closeOnce.Do(func() { close(p.tasks) })
}

// Cancel stops the pool: queued tasks are dropped, no new task starts, and
// in-flight tasks are cancelled through their context. Idempotent and safe
// from any goroutine.
func (p *Pool[T]) Cancel() {
	p.cancelOnce.Do(func() { close(p.cancelled) })
	p.Close()
}

// Active returns the number of tasks currently executing.
func (p *Pool[T]) Active() int {
	return int(p.active.Load())
}

// Run executes tasks with exactly MaxWorkers goroutines until the queue is
// closed and drained, or the run is cancelled. All workers are joined
// before Run returns. The returned error is ctx.Err() when the surrounding
// context ended the run, nil otherwise (including after Cancel).
func (p *Pool[T]) Run(ctx context.Context) (Stats, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Propagate Cancel() into the worker context.
	go func() {
		select {
		case <-p.cancelled:
			cancel()
		case <-runCtx.Done():
		}
	}()

	results := make(chan Result[T], p.opts.MaxWorkers)

	for i := 0; i < p.opts.MaxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, results)
	}

	go func() {
		p.wg.Wait()
		close(results)
	}()

	var stats Stats
	completed := 0
	for r := range results {
		completed++
		if r.Err != nil {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
		if p.opts.OnResult != nil {
			p.opts.OnResult(r)
		}
		if p.opts.OnProgress != nil {
			p.opts.OnProgress(completed, int(p.submitted.Load()))
		}
	}

	stats.Submitted = int(p.submitted.Load())
	stats.Dropped = stats.Submitted - stats.Succeeded - stats.Failed

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// worker executes tasks until the queue closes or the run is cancelled.
func (p *Pool[T]) worker(ctx context.Context, results chan<- Result[T]) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			// Re-check before starting: no new task once cancellation
			// is observed.
			select {
			case <-ctx.Done():
				return
			default:
			}

			p.active.Add(1)
			r := p.execute(ctx, t)
			p.active.Add(-1)

			if r.Err != nil && errors.Is(r.Err, context.Canceled) {
				// Task interrupted by cancellation: not a task failure,
				// and the run is ending anyway.
				return
			}
			results <- r
		}
	}
}

// execute runs one task under its timeout. A task that outlives the
// timeout is abandoned: the worker records ErrTaskTimeout and its context
// is cancelled so the task goroutine can wind down.
func (p *Pool[T]) execute(ctx context.Context, t task[T]) Result[T] {
	taskCtx := ctx
	if p.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, p.opts.TaskTimeout)
		defer cancel()
	}

	done := make(chan Result[T], 1)
	go func() {
		value, err := t.fn(taskCtx)
		done <- Result[T]{Index: t.index, Value: value, Err: err}
	}()

	select {
	case r := <-done:
		if r.Err != nil && errors.Is(r.Err, context.DeadlineExceeded) && ctx.Err() == nil {
			r.Err = ErrTaskTimeout
		}
		return r
	case <-taskCtx.Done():
		if ctx.Err() != nil {
			return Result[T]{Index: t.index, Err: ctx.Err()}
		}
		p.opts.Logger.Warn("task abandoned after timeout",
			zap.Int("task", t.index),
			zap.Duration("timeout", p.opts.TaskTimeout),
		)
		return Result[T]{Index: t.index, Err: ErrTaskTimeout}
	}
}
