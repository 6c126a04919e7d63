// Package seeder coordinates a cache-seeding run: compute which tiles are
// missing, download them through a bounded worker pool with retry and
// circuit breaking, and flush results into the tile store in atomic
// batches.
//
// # Run lifecycle
//
//	Idle → ComputingMissing → Downloading ⇄ Flushing → Done
//	                                                 → Cancelled
//	                                                 → Failed
//
// [Seeder.Start] returns a [Run] handle immediately; the run executes in
// the background. The handle exposes [Run.Progress] for polling,
// [Run.Cancel] for cooperative cancellation and [Run.Wait] for the final
// [Summary].
//
// Individual tile failures (exhausted retries, open circuits, timeouts)
// are counted and reported in the summary but never abort the run. Store
// failures are fatal: the run moves to Failed carrying the partial summary
// of work already durably flushed.
//
// Cancellation stops new downloads but does not discard completed work:
// records fetched before the cancel are still flushed before the run
// reports Cancelled.
package seeder
