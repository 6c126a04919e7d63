// Package pool provides a bounded worker pool with per-task timeouts and
// cooperative cancellation.
//
// A [Pool] runs exactly MaxWorkers goroutines over a bounded task queue.
// [Pool.Submit] applies backpressure: it blocks while the queue is full.
// [Pool.Run] drains the queue and joins every worker before returning,
// whether the run succeeds, times out or is cancelled, so callers never
// leak goroutines the way ad-hoc per-task spawning does.
//
// # Usage
//
//	p := pool.New[[]byte](pool.Options[[]byte]{
//	    MaxWorkers:  5,
//	    TaskTimeout: 30 * time.Second,
//	    OnResult:    func(r pool.Result[[]byte]) { ... },
//	})
//
//	go func() {
//	    defer p.Close()
//	    for _, task := range tasks {
//	        if err := p.Submit(task); err != nil {
//	            return
//	        }
//	    }
//	}()
//
//	stats, err := p.Run(ctx)
//
// # Timeouts and cancellation
//
// A task exceeding TaskTimeout is abandoned: its worker records
// [ErrTaskTimeout] and moves on, while the task goroutine winds down at
// its next context check. [Pool.Cancel] is idempotent and safe from any
// goroutine; queued tasks are dropped and no new task starts once
// cancellation is observed, but a task already running finishes its
// current unit of work.
//
// Result and progress callbacks are invoked from a single goroutine, never
// concurrently.
package pool
