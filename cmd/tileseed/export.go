package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/yuri-schmaltz/tileseed/internal/config"
	"github.com/yuri-schmaltz/tileseed/internal/export"
	"github.com/yuri-schmaltz/tileseed/internal/logging"
	"github.com/yuri-schmaltz/tileseed/internal/progress"
	"github.com/yuri-schmaltz/tileseed/internal/store"
)

// runExport uploads the cache file to object storage.
func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	cache := fs.String("cache", "", "Cache file path")
	bucket := fs.String("bucket", "", "Destination bucket URL")
	object := fs.String("object", "", "Destination object path")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: tileseed export [options]

Checkpoint the cache into a standalone file and upload it to object
storage (s3://, gs:// or file:// bucket URLs).

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, code := loadConfig(*configPath)
	if code != ExitSuccess {
		return code
	}
	cfg = cfg.Merge(config.Config{
		CachePath: *cache,
		Export:    config.ExportConfig{Bucket: *bucket, Object: *object},
	})
	if cfg.CachePath == "" || cfg.Export.Bucket == "" || cfg.Export.Object == "" {
		fmt.Fprintln(os.Stderr, "Error: -cache, -bucket and -object are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	st, err := store.Open(cfg.CachePath, store.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		return ExitStorageError
	}
	defer st.Close()

	n, err := export.Export(ctx, st, cfg.CachePath, cfg.Export.Bucket, cfg.Export.Object, export.Options{
		Logger: logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Fprintf(os.Stderr, "[tileseed] Exported: %s/%s (%s)\n",
		cfg.Export.Bucket, cfg.Export.Object, progress.FormatBytes(n))
	return ExitSuccess
}
