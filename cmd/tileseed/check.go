package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yuri-schmaltz/tileseed/internal/progress"
	"github.com/yuri-schmaltz/tileseed/internal/store"
)

// runCheck prints cache statistics and verifies database integrity.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)

	cache := fs.String("cache", "", "Cache file path (required)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: tileseed check [options]

Report tile count, total size and zoom range of the cache, then run an
integrity check on the underlying database.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *cache == "" {
		fmt.Fprintln(os.Stderr, "Error: -cache is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	st, err := store.Open(*cache, store.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		return ExitStorageError
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Printf("[tileseed] Cache: %s\n", *cache)
	fmt.Printf("[tileseed] Tiles: %d | Size: %s", stats.Tiles, progress.FormatBytes(stats.Bytes))
	if stats.Tiles > 0 {
		fmt.Printf(" | Zoom: %d-%d", stats.MinZoom, stats.MaxZoom)
	}
	fmt.Println()

	if err := st.IntegrityCheck(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitIntegrityFailed
	}
	fmt.Println("[tileseed] Integrity: ok")

	return ExitSuccess
}
