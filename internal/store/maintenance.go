package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DeleteOlderThan evicts tiles fetched before cutoff and returns the
// number removed. The last_modified index keeps this off the main table.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM gpkg_tiles WHERE last_modified < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, &WriteError{Err: fmt.Errorf("evict: %w", err)}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: rows affected: %w", err)
	}

	s.log.Info("evicted stale tiles", zap.Int64("tiles", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// Vacuum compacts the database file. Worth running after bulk eviction.
func (s *Store) Vacuum(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("store: vacuum: %w", err)
	}
	return nil
}

// Analyze refreshes query planner statistics. Worth running after bulk
// inserts.
func (s *Store) Analyze(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("store: analyze: %w", err)
	}
	return nil
}

// IntegrityCheck runs SQLite's integrity check and returns an error when
// the database reports corruption.
func (s *Store) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("store: integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("store: integrity check failed: %s", result)
	}
	return nil
}

// Checkpoint flushes the write-ahead log back into the main database
// file, so the file on disk is complete on its own. Used before exporting
// the cache.
func (s *Store) Checkpoint(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("store: wal checkpoint: %w", err)
	}
	return nil
}
