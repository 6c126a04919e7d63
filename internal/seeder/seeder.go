package seeder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yuri-schmaltz/tileseed/internal/fetch"
	"github.com/yuri-schmaltz/tileseed/internal/pool"
	"github.com/yuri-schmaltz/tileseed/internal/store"
	"github.com/yuri-schmaltz/tileseed/pkg/tile"
)

// DefaultMaxBatchSize bounds the in-memory record buffer between flushes.
const DefaultMaxBatchSize = 64

// Options configures a Seeder.
type Options struct {
	// MaxWorkers bounds concurrent downloads. Default 5.
	MaxWorkers int

	// QueueSize bounds the download queue. Default MaxWorkers * 2.
	QueueSize int

	// TaskTimeout is the budget per tile download, including retries.
	// Default 30s.
	TaskTimeout time.Duration

	// MaxBatchSize is the number of fetched records buffered before an
	// early flush. Default 64.
	MaxBatchSize int

	// OnProgress, when set, is called after every finished tile with
	// (completed, total, errorCount). Never invoked concurrently.
	OnProgress func(completed, total, errors int)

	// OnTile, when set, is called once per finished tile with its payload
	// size, or a non-nil error for a failed tile. Never invoked
	// concurrently.
	OnTile func(key tile.Key, size int64, err error)

	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

func (o *Options) fillDefaults() {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = pool.DefaultMaxWorkers
	}
	if o.QueueSize <= 0 {
		o.QueueSize = o.MaxWorkers * 2
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 30 * time.Second
	}
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = DefaultMaxBatchSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Seeder populates a tile store from an upstream service.
type Seeder struct {
	store   *store.Store
	fetcher *fetch.Fetcher
	opts    Options
}

// New creates a Seeder writing to st via fetcher.
func New(st *store.Store, fetcher *fetch.Fetcher, opts Options) *Seeder {
	opts.fillDefaults()
	return &Seeder{store: st, fetcher: fetcher, opts: opts}
}

// Start begins a seeding run for keys and returns its handle. The run
// proceeds in the background until done, failed, cancelled through the
// handle, or ctx ends.
func (s *Seeder) Start(ctx context.Context, keys []tile.Key) (*Run, error) {
	for _, key := range keys {
		if err := key.Valid(); err != nil {
			return nil, err
		}
	}

	run := newRun(ctx)
	go s.execute(run, keys)
	return run, nil
}

// execute drives one run to a terminal state.
func (s *Seeder) execute(run *Run, keys []tile.Key) {
	defer run.finish()

	log := s.opts.Logger.With(zap.String("run", run.ID()))
	summary := &run.summary
	summary.Requested = len(keys)

	run.setState(StateComputingMissing)
	missing, err := s.store.GetMissing(run.ctx, keys)
	if err != nil {
		log.Error("computing missing tiles failed", zap.Error(err))
		run.fail(err)
		return
	}
	summary.AlreadyCached = len(keys) - len(missing)
	run.total.Store(int64(len(missing)))

	if len(missing) == 0 {
		log.Info("nothing to seed", zap.Int("requested", len(keys)))
		run.setState(StateDone)
		return
	}

	log.Info("seeding started",
		zap.Int("requested", len(keys)),
		zap.Int("missing", len(missing)),
		zap.Int("workers", s.opts.MaxWorkers),
	)

	// Flushes must survive cancellation: completed work is not discarded.
	flushCtx := context.WithoutCancel(run.ctx)

	var (
		batch    []tile.Record
		fatalErr error
	)

	p := pool.New[tile.Record](pool.Options[tile.Record]{
		MaxWorkers:  s.opts.MaxWorkers,
		QueueSize:   s.opts.QueueSize,
		TaskTimeout: s.opts.TaskTimeout,
		Logger:      s.opts.Logger,
		OnResult: func(r pool.Result[tile.Record]) {
			if r.Err != nil {
				run.errs.Add(1)
				summary.Failed++
				summary.Failures = append(summary.Failures, TileError{Key: missing[r.Index], Err: r.Err})
				if s.opts.OnTile != nil {
					s.opts.OnTile(missing[r.Index], 0, r.Err)
				}
				return
			}
			if s.opts.OnTile != nil {
				s.opts.OnTile(r.Value.Key, r.Value.Size, nil)
			}
			batch = append(batch, r.Value)
			if len(batch) >= s.opts.MaxBatchSize && fatalErr == nil {
				run.setState(StateFlushing)
				if err := s.flush(flushCtx, summary, &batch); err != nil {
					fatalErr = err
					run.cancel() // stop downloading; the run is lost
					return
				}
				run.setState(StateDownloading)
			}
		},
		OnProgress: func(completed, _ int) {
			run.completed.Store(int64(completed))
			if s.opts.OnProgress != nil {
				s.opts.OnProgress(completed, len(missing), int(run.errs.Load()))
			}
		},
	})

	// Propagate handle/context cancellation into the pool.
	go func() {
		<-run.ctx.Done()
		p.Cancel()
	}()

	// Feeder: one task per missing tile.
	go func() {
		defer p.Close()
		for _, key := range missing {
			key := key
			err := p.Submit(func(ctx context.Context) (tile.Record, error) {
				return s.fetcher.Fetch(ctx, key)
			})
			if err != nil {
				return // pool cancelled
			}
		}
	}()

	run.setState(StateDownloading)
	stats, runErr := p.Run(run.ctx)

	// Flush whatever completed, even on cancellation.
	if fatalErr == nil && len(batch) > 0 {
		run.setState(StateFlushing)
		if err := s.flush(flushCtx, summary, &batch); err != nil {
			fatalErr = err
		}
	}

	summary.Cancelled = len(missing) - summary.Cached - summary.Failed

	switch {
	case fatalErr != nil:
		log.Error("seeding failed", zap.Error(fatalErr), zap.Int("cached", summary.Cached))
		run.fail(fatalErr)
	case runErr != nil || run.ctx.Err() != nil || stats.Dropped > 0:
		log.Warn("seeding cancelled",
			zap.Int("cached", summary.Cached),
			zap.Int("failed", summary.Failed),
			zap.Int("remaining", summary.Cancelled),
		)
		run.setState(StateCancelled)
	default:
		log.Info("seeding done",
			zap.Int("cached", summary.Cached),
			zap.Int("failed", summary.Failed),
		)
		run.setState(StateDone)
	}
}

// flush writes the buffered batch and clears it. Cached counts only tiles
// that are durably flushed.
func (s *Seeder) flush(ctx context.Context, summary *Summary, batch *[]tile.Record) error {
	if len(*batch) == 0 {
		return nil
	}
	if err := s.store.PutBatch(ctx, *batch); err != nil {
		return err
	}
	summary.Cached += len(*batch)
	*batch = (*batch)[:0]
	return nil
}
