package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yuri-schmaltz/tileseed/internal/breaker"
	"github.com/yuri-schmaltz/tileseed/internal/config"
	"github.com/yuri-schmaltz/tileseed/internal/creds"
	"github.com/yuri-schmaltz/tileseed/internal/fetch"
	"github.com/yuri-schmaltz/tileseed/internal/logging"
	"github.com/yuri-schmaltz/tileseed/internal/progress"
	"github.com/yuri-schmaltz/tileseed/internal/retry"
	"github.com/yuri-schmaltz/tileseed/internal/seeder"
	"github.com/yuri-schmaltz/tileseed/internal/store"
	"github.com/yuri-schmaltz/tileseed/pkg/tile"
)

// maxReportedFailures caps the per-tile error listing at the end of a run.
const maxReportedFailures = 20

// runSeed downloads every missing tile of a zoom rectangle into the cache.
func runSeed(args []string) int {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	service := fs.String("service", "", "Tile service name")
	urlTemplate := fs.String("url-template", "", "Tile URL template with {z}/{x}/{y} placeholders")
	userAgent := fs.String("user-agent", "", "User-Agent header sent to the service")
	cache := fs.String("cache", "", "Cache file path")
	zoom := fs.Int("zoom", -1, "Zoom level to seed (required)")
	minX := fs.Int("min-x", 0, "Minimum tile column")
	maxX := fs.Int("max-x", 0, "Maximum tile column")
	minY := fs.Int("min-y", 0, "Minimum tile row")
	maxY := fs.Int("max-y", 0, "Maximum tile row")
	workers := fs.Int("workers", 0, "Number of parallel download workers")
	batchSize := fs.Int("batch-size", 0, "Tiles per cache write")
	tileTimeout := fs.Duration("tile-timeout", 0, "Per-request timeout")
	showProgress := fs.Bool("progress", false, "Show progress output")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: tileseed seed [options]

Download every missing tile of a zoom rectangle into the local cache.
Tiles already cached are skipped; individual tile failures are reported
but do not abort the run.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *zoom < 0 {
		fmt.Fprintln(os.Stderr, "Error: -zoom is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, code := loadConfig(*configPath)
	if code != ExitSuccess {
		return code
	}
	cfg = cfg.Merge(config.Config{
		Service: config.ServiceConfig{
			Name:        *service,
			URLTemplate: *urlTemplate,
			UserAgent:   *userAgent,
		},
		CachePath:   *cache,
		Workers:     *workers,
		BatchSize:   *batchSize,
		TileTimeout: *tileTimeout,
		Progress:    *showProgress,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitConfigError
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	defer logger.Sync()

	rng := tile.Range{Z: *zoom, MinX: *minX, MaxX: *maxX, MinY: *minY, MaxY: *maxY}
	if err := rng.Valid(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	keys := rng.Keys()

	st, err := store.Open(cfg.CachePath, store.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		return ExitStorageError
	}
	defer st.Close()

	reg := breaker.NewRegistry(breaker.Options{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
	})
	policy := retry.Policy{
		MaxAttempts:  cfg.Retry.Attempts,
		InitialDelay: cfg.Retry.Backoff,
		MaxDelay:     cfg.Retry.MaxBackoff,
		Factor:       cfg.Retry.Factor,
	}
	client := fetch.NewClient(fetch.Options{Timeout: cfg.TileTimeout})
	fetcher := fetch.NewFetcher(client, fetch.Service{
		Name:        cfg.Service.Name,
		URLTemplate: cfg.Service.URLTemplate,
		UserAgent:   cfg.Service.UserAgent,
	}, reg, policy, creds.Default(), logger)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[tileseed] Received interrupt, flushing completed work...")
		cancel()
	}()

	var reporter *progress.Reporter
	opts := seeder.Options{
		MaxWorkers:   cfg.Workers,
		QueueSize:    cfg.QueueSize,
		MaxBatchSize: cfg.BatchSize,
		Logger:       logger,
	}
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			Total:     len(keys),
			Workers:   cfg.Workers,
			Service:   cfg.Service.Name,
			CachePath: cfg.CachePath,
		})
		opts.OnTile = func(_ tile.Key, size int64, err error) {
			if err != nil {
				reporter.TileFailed()
				return
			}
			reporter.TileCompleted(size)
		}
		reporter.Start()
		defer reporter.Stop()
	}

	s := seeder.New(st, fetcher, opts)
	run, err := s.Start(ctx, keys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	summary, err := run.Wait(context.Background())
	if reporter != nil {
		reporter.Stop()
	}
	printSummary(summary, run.State())

	switch {
	case run.State() == seeder.StateFailed:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, store.ErrUnavailable) {
			return ExitStorageError
		}
		var werr *store.WriteError
		if errors.As(err, &werr) {
			return ExitStorageError
		}
		return ExitGeneralError
	case run.State() == seeder.StateCancelled:
		return ExitCancelled
	case summary.Failed > 0:
		return ExitSeedFailed
	default:
		return ExitSuccess
	}
}

// loadConfig builds the effective configuration from defaults, an optional
// YAML file and the environment.
func loadConfig(path string) (config.Config, int) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return config.Config{}, ExitConfigError
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return config.Config{}, ExitConfigError
	}
	return cfg, ExitSuccess
}

func printSummary(summary seeder.Summary, state seeder.State) {
	fmt.Fprintf(os.Stderr, "[tileseed] %s: %d requested | %d already cached | %d fetched | %d failed | %d skipped\n",
		state,
		summary.Requested,
		summary.AlreadyCached,
		summary.Cached,
		summary.Failed,
		summary.Cancelled,
	)
	for i, f := range summary.Failures {
		if i == maxReportedFailures {
			fmt.Fprintf(os.Stderr, "[tileseed]   ... and %d more\n", len(summary.Failures)-i)
			break
		}
		fmt.Fprintf(os.Stderr, "[tileseed]   %v\n", f)
	}
}
