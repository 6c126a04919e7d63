package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Total is the number of tiles to download.
	Total int

	// Workers is the number of parallel workers.
	Workers int

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// Service is the tile service name (for display).
	Service string

	// CachePath is the cache file being seeded (for display).
	CachePath string
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu             sync.Mutex
	completedTiles atomic.Int32
	failedTiles    atomic.Int32
	completedBytes atomic.Int64
	startTime      time.Time
	lastUpdate     time.Time
	lastTiles      int32
	stopCh         chan struct{}
	stopped        bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.startTime = time.Now()
	r.lastUpdate = r.startTime

	// Print header
	fmt.Fprintf(r.opts.Output, "[tileseed] Seeding: %s (%d tiles)\n", r.opts.Service, r.opts.Total)
	fmt.Fprintf(r.opts.Output, "[tileseed] Cache: %s | Workers: %d\n",
		r.opts.CachePath,
		r.opts.Workers,
	)

	go r.updateLoop()
}

// Stop stops the progress reporter.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
}

// TileCompleted marks one tile as downloaded and stored.
func (r *Reporter) TileCompleted(size int64) {
	r.completedTiles.Add(1)
	r.completedBytes.Add(size)
}

// TileFailed marks one tile as failed.
func (r *Reporter) TileFailed() {
	r.completedTiles.Add(1)
	r.failedTiles.Add(1)
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := time.Now()
	completed := r.completedTiles.Load()

	// Calculate rate over the last period
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	tilesThisPeriod := completed - r.lastTiles
	rate := float64(tilesThisPeriod) / elapsed

	r.lastUpdate = now
	r.lastTiles = completed

	// Calculate percentage and ETA
	var percent float64
	var eta string
	if r.opts.Total > 0 {
		percent = float64(completed) / float64(r.opts.Total) * 100
		if rate > 0 {
			remaining := float64(r.opts.Total) - float64(completed)
			etaSeconds := remaining / rate
			eta = formatDuration(time.Duration(etaSeconds * float64(time.Second)))
		} else {
			eta = "calculating..."
		}
	}

	fmt.Fprintf(r.opts.Output, "\r[tileseed] Progress: %.1f%% | %d / %d tiles | %.1f tiles/s | %s | ETA: %s    ",
		percent,
		completed,
		r.opts.Total,
		rate,
		formatBytes(r.completedBytes.Load()),
		eta,
	)
}

// printFinalStatus outputs the end-of-run summary line.
func (r *Reporter) printFinalStatus() {
	elapsed := time.Since(r.startTime)
	completed := r.completedTiles.Load()
	failed := r.failedTiles.Load()

	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(completed) / elapsed.Seconds()
	}

	fmt.Fprintf(r.opts.Output, "\n[tileseed] Finished: %d tiles (%d failed) | %s | %.1f tiles/s | %s\n",
		completed,
		failed,
		formatBytes(r.completedBytes.Load()),
		rate,
		formatDuration(elapsed),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}
