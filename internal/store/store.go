package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/yuri-schmaltz/tileseed/pkg/tile"
)

// ErrUnavailable is returned when the store cannot be opened or the
// underlying database is gone. It is fatal to a seeding run.
var ErrUnavailable = errors.New("store: unavailable")

// WriteError reports a failed batch commit. Nothing from the batch is
// persisted.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("store: batch write failed: %v", e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Stats summarizes cache contents.
type Stats struct {
	Tiles   int64
	Bytes   int64
	MinZoom int
	MaxZoom int
}

// Options configures a Store.
type Options struct {
	// Logger for store-level events. Defaults to a nop logger.
	Logger *zap.Logger
}

// Store is a SQLite-backed tile cache. It is safe for concurrent use;
// batch writes are serialized internally.
type Store struct {
	db  *sql.DB
	log *zap.Logger

	// writeMu enforces the single-writer discipline: one logical batch
	// commit at a time.
	writeMu sync.Mutex
}

// Pragmas tuned for a moderate-sized tile cache: WAL for concurrent
// readers during writes, NORMAL sync as the durability/speed balance,
// generous page cache for point lookups. Applied through the DSN so every
// pooled connection gets them.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"cache_size(-64000)",
	"temp_store(MEMORY)",
	"mmap_size(30000000)",
	"busy_timeout(5000)",
}

const schema = `
CREATE TABLE IF NOT EXISTS gpkg_tiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	zoom_level INTEGER NOT NULL,
	tile_column INTEGER NOT NULL,
	tile_row INTEGER NOT NULL,
	tile_data BLOB NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size_bytes INTEGER NOT NULL,
	last_modified INTEGER NOT NULL,
	UNIQUE (zoom_level, tile_column, tile_row)
);
CREATE INDEX IF NOT EXISTS idx_tiles_zxy ON gpkg_tiles(zoom_level, tile_column, tile_row);
CREATE INDEX IF NOT EXISTS idx_tiles_zoom ON gpkg_tiles(zoom_level);
CREATE INDEX IF NOT EXISTS idx_tiles_time ON gpkg_tiles(last_modified DESC);
`

// Open opens (or creates) the cache at path and applies pragmas and
// schema. Failures wrap ErrUnavailable.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: cache path is required", ErrUnavailable)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	dsn := filepath.Clean(path) + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrUnavailable, path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", ErrUnavailable, err)
	}

	opts.Logger.Debug("tile cache opened", zap.String("path", path))
	return &Store{db: db, log: opts.Logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetMissing returns the subset of keys not present in the cache, in the
// order given.
func (s *Store) GetMissing(ctx context.Context, keys []tile.Key) ([]tile.Key, error) {
	stmt, err := s.db.PrepareContext(ctx,
		`SELECT 1 FROM gpkg_tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`)
	if err != nil {
		return nil, fmt.Errorf("store: prepare lookup: %w", err)
	}
	defer stmt.Close()

	var missing []tile.Key
	for _, key := range keys {
		var one int
		err := stmt.QueryRowContext(ctx, key.Z, key.X, key.Y).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			missing = append(missing, key)
		case err != nil:
			return nil, fmt.Errorf("store: lookup %s: %w", key, err)
		}
	}
	return missing, nil
}

// PutBatch writes records in one transaction: either every record becomes
// durable or none does. Existing tiles are replaced. Concurrent calls are
// serialized.
func (s *Store) PutBatch(ctx context.Context, records []tile.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &WriteError{Err: fmt.Errorf("begin: %w", err)}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gpkg_tiles (zoom_level, tile_column, tile_row, tile_data, content_type, size_bytes, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (zoom_level, tile_column, tile_row) DO UPDATE SET
			tile_data = excluded.tile_data,
			content_type = excluded.content_type,
			size_bytes = excluded.size_bytes,
			last_modified = excluded.last_modified`)
	if err != nil {
		tx.Rollback()
		return &WriteError{Err: fmt.Errorf("prepare upsert: %w", err)}
	}
	defer stmt.Close()

	for _, rec := range records {
		if err := rec.Key.Valid(); err != nil {
			tx.Rollback()
			return &WriteError{Err: err}
		}
		if len(rec.Data) == 0 {
			tx.Rollback()
			return &WriteError{Err: fmt.Errorf("empty payload for tile %s", rec.Key)}
		}
		fetchedAt := rec.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now().UTC()
		}
		_, err := stmt.ExecContext(ctx,
			rec.Key.Z, rec.Key.X, rec.Key.Y,
			rec.Data, rec.ContentType, int64(len(rec.Data)), fetchedAt.UnixMilli())
		if err != nil {
			tx.Rollback()
			return &WriteError{Err: fmt.Errorf("upsert tile %s: %w", rec.Key, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &WriteError{Err: fmt.Errorf("commit: %w", err)}
	}

	s.log.Debug("batch flushed", zap.Int("tiles", len(records)))
	return nil
}

// Get returns the cached record for key, with ok false when absent.
func (s *Store) Get(ctx context.Context, key tile.Key) (tile.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tile_data, content_type, size_bytes, last_modified
		FROM gpkg_tiles
		WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		key.Z, key.X, key.Y)

	rec := tile.Record{Key: key}
	var fetchedAt int64
	err := row.Scan(&rec.Data, &rec.ContentType, &rec.Size, &fetchedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return tile.Record{}, false, nil
	case err != nil:
		return tile.Record{}, false, fmt.Errorf("store: get %s: %w", key, err)
	}
	rec.FetchedAt = time.UnixMilli(fetchedAt).UTC()
	return rec, true, nil
}

// GetRange returns every cached tile in the inclusive rectangle at zoom z,
// ordered by row then column.
func (s *Store) GetRange(ctx context.Context, z, minX, maxX, minY, maxY int) ([]tile.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT zoom_level, tile_column, tile_row, tile_data, content_type, size_bytes, last_modified
		FROM gpkg_tiles
		WHERE zoom_level = ? AND tile_column BETWEEN ? AND ? AND tile_row BETWEEN ? AND ?
		ORDER BY tile_row, tile_column`,
		z, minX, maxX, minY, maxY)
	if err != nil {
		return nil, fmt.Errorf("store: range scan: %w", err)
	}
	defer rows.Close()

	var records []tile.Record
	for rows.Next() {
		var rec tile.Record
		var fetchedAt int64
		if err := rows.Scan(&rec.Key.Z, &rec.Key.X, &rec.Key.Y,
			&rec.Data, &rec.ContentType, &rec.Size, &fetchedAt); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		rec.FetchedAt = time.UnixMilli(fetchedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: range scan: %w", err)
	}
	return records, nil
}

// Stats reports tile count, total payload bytes and the zoom range.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0),
		       COALESCE(MIN(zoom_level), 0), COALESCE(MAX(zoom_level), 0)
		FROM gpkg_tiles`)

	var st Stats
	if err := row.Scan(&st.Tiles, &st.Bytes, &st.MinZoom, &st.MaxZoom); err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}
