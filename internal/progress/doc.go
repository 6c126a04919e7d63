// Package progress provides progress reporting for seeding runs.
//
// This package outputs human-readable progress information to stdout,
// including completion percentage, download rate, and ETA.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Total:   len(missing),
//	    Workers: 5,
//	    Output:  os.Stdout,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// Update as tiles finish
//	reporter.TileCompleted(size)
//
// # Output Format
//
//	[tileseed] Seeding: osm (4096 tiles)
//	[tileseed] Cache: ./cache.gpkg | Workers: 5
//	[tileseed] Progress: 45.2% | 1852 / 4096 tiles | 38.1 tiles/s | 12.40 MB | ETA: 58s
package progress
