package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuri-schmaltz/tileseed/internal/store"
)

// runVacuum evicts stale tiles and compacts the cache file.
func runVacuum(args []string) int {
	fs := flag.NewFlagSet("vacuum", flag.ExitOnError)

	cache := fs.String("cache", "", "Cache file path (required)")
	olderThan := fs.Duration("older-than", 0, "Evict tiles fetched longer ago than this (0 keeps everything)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: tileseed vacuum [options]

Evict tiles older than the given age, compact the cache file and refresh
query planner statistics.

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

	if *olderThan > 0 {
		cutoff := time.Now().Add(-*olderThan)
		n, err := st.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitStorageError
		}
		fmt.Fprintf(os.Stderr, "[tileseed] Evicted: %d tiles older than %s\n", n, olderThan)
	}

	if err := st.Vacuum(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	if err := st.Analyze(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Fprintln(os.Stderr, "[tileseed] Vacuum complete")
	return ExitSuccess
}
