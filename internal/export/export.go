// Package export copies a tile cache into object storage.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/blob"

	"github.com/yuri-schmaltz/tileseed/internal/store"
)

// Options configures an export.
type Options struct {
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// Export checkpoints the cache at path into a standalone file and uploads
// it to object at bucketURL. The store must be open: the checkpoint folds
// the write-ahead log back into the main file so the upload is complete on
// its own.
func Export(ctx context.Context, st *store.Store, path, bucketURL, object string, opts Options) (int64, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := st.Checkpoint(ctx); err != nil {
		return 0, fmt.Errorf("export: checkpoint before upload: %w", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("export: read cache stats: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("export: open cache file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("export: stat cache file: %w", err)
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return 0, fmt.Errorf("export: open bucket %s: %w", bucketURL, err)
	}
	defer bucket.Close()

	w, err := bucket.NewWriter(ctx, object, &blob.WriterOptions{
		ContentType: "application/geopackage+sqlite3",
		Metadata: map[string]string{
			"tile-count":  strconv.FormatInt(stats.Tiles, 10),
			"tile-bytes":  strconv.FormatInt(stats.Bytes, 10),
			"exported-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("export: create object %s: %w", object, err)
	}

	n, err := io.Copy(w, f)
	if err != nil {
		w.Close()
		return 0, fmt.Errorf("export: upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("export: finalize object: %w", err)
	}

	opts.Logger.Info("cache exported",
		zap.String("bucket", bucketURL),
		zap.String("object", object),
		zap.Int64("bytes", n),
	)
	if n != fi.Size() {
		opts.Logger.Warn("cache size changed during export",
			zap.Int64("expected", fi.Size()),
			zap.Int64("uploaded", n),
		)
	}
	return n, nil
}
