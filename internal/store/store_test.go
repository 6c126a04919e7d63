package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yuri-schmaltz/tileseed/pkg/tile"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.gpkg"), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(z, x, y int, data string) tile.Record {
	return tile.Record{
		Key:         tile.Key{Z: z, X: x, Y: y},
		Data:        []byte(data),
		ContentType: "image/png",
		FetchedAt:   time.Now().UTC(),
		Size:        int64(len(data)),
	}
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := Open("  ", Options{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Open with empty path = %v, want ErrUnavailable", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutBatch(ctx, []tile.Record{
		record(3, 1, 1, "a"),
		record(3, 2, 1, "b"),
	}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	keys := []tile.Key{
		{Z: 3, X: 1, Y: 1}, // present
		{Z: 3, X: 2, Y: 1}, // present
		{Z: 3, X: 3, Y: 1}, // missing
		{Z: 4, X: 1, Y: 1}, // missing (different zoom)
	}

	missing, err := s.GetMissing(ctx, keys)
	if err != nil {
		t.Fatalf("GetMissing: %v", err)
	}
	want := []tile.Key{{Z: 3, X: 3, Y: 1}, {Z: 4, X: 1, Y: 1}}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d] = %v, want %v", i, missing[i], want[i])
		}
	}
}

func TestPutBatchReplacesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutBatch(ctx, []tile.Record{record(5, 10, 10, "old")}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}
	if err := s.PutBatch(ctx, []tile.Record{record(5, 10, 10, "newer")}); err != nil {
		t.Fatalf("PutBatch replace: %v", err)
	}

	rec, ok, err := s.Get(ctx, tile.Key{Z: 5, X: 10, Y: 10})
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(rec.Data) != "newer" {
		t.Errorf("data = %q, want newer", rec.Data)
	}
	if rec.Size != 5 {
		t.Errorf("size = %d, want 5", rec.Size)
	}

	// Replacement, not duplication.
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Tiles != 1 {
		t.Errorf("tiles = %d, want 1", st.Tiles)
	}
}

func TestPutBatchAtomicity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []tile.Record{
		record(7, 0, 0, "a"),
		record(7, 1, 0, "b"),
		{Key: tile.Key{Z: 7, X: 2, Y: 0}}, // empty payload fails the batch
		record(7, 3, 0, "d"),
	}

	err := s.PutBatch(ctx, batch)
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}

	// All-or-nothing: none of the batch may be visible.
	keys := []tile.Key{{Z: 7, X: 0, Y: 0}, {Z: 7, X: 1, Y: 0}, {Z: 7, X: 3, Y: 0}}
	missing, err := s.GetMissing(ctx, keys)
	if err != nil {
		t.Fatalf("GetMissing: %v", err)
	}
	if len(missing) != len(keys) {
		t.Errorf("after failed batch, %d of %d keys present; batch was not atomic",
			len(keys)-len(missing), len(keys))
	}
}

func TestPutBatchRejectsInvalidKey(t *testing.T) {
	s := openTestStore(t)

	err := s.PutBatch(context.Background(), []tile.Record{
		{Key: tile.Key{Z: -1, X: 0, Y: 0}, Data: []byte("x")},
	})
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if !errors.Is(err, tile.ErrInvalidKey) {
		t.Errorf("expected wrapped ErrInvalidKey, got %v", err)
	}
}

func TestGetRangeOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of order, expect row-major order back.
	if err := s.PutBatch(ctx, []tile.Record{
		record(9, 2, 1, "d"),
		record(9, 1, 0, "a"),
		record(9, 1, 1, "c"),
		record(9, 2, 0, "b"),
		record(9, 5, 5, "outside"),
		record(8, 1, 0, "wrong zoom"),
	}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	records, err := s.GetRange(ctx, 9, 1, 2, 0, 1)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}

	var got string
	for _, rec := range records {
		got += string(rec.Data)
	}
	if got != "abcd" {
		t.Errorf("range order = %q, want abcd", got)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := record(4, 0, 0, "old")
	old.FetchedAt = time.Now().Add(-48 * time.Hour)
	fresh := record(4, 1, 0, "fresh")

	if err := s.PutBatch(ctx, []tile.Record{old, fresh}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	n, err := s.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("evicted = %d, want 1", n)
	}

	if _, ok, _ := s.Get(ctx, old.Key); ok {
		t.Error("old tile still present after eviction")
	}
	if _, ok, _ := s.Get(ctx, fresh.Key); !ok {
		t.Error("fresh tile evicted")
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutBatch(ctx, []tile.Record{
		record(3, 0, 0, "aa"),
		record(7, 1, 1, "bbbb"),
	}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Tiles != 2 || st.Bytes != 6 || st.MinZoom != 3 || st.MaxZoom != 7 {
		t.Errorf("stats = %+v, want {Tiles:2 Bytes:6 MinZoom:3 MaxZoom:7}", st)
	}
}

func TestMaintenanceOps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutBatch(ctx, []tile.Record{record(2, 0, 0, "x")}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}
	if err := s.IntegrityCheck(ctx); err != nil {
		t.Errorf("IntegrityCheck: %v", err)
	}
	if err := s.Analyze(ctx); err != nil {
		t.Errorf("Analyze: %v", err)
	}
	if err := s.Checkpoint(ctx); err != nil {
		t.Errorf("Checkpoint: %v", err)
	}
	if err := s.Vacuum(ctx); err != nil {
		t.Errorf("Vacuum: %v", err)
	}
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutBatch(ctx, []tile.Record{record(1, 0, 0, "seed")}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				batch := []tile.Record{record(10+w, i, 0, "data")}
				if err := s.PutBatch(ctx, batch); err != nil {
					t.Errorf("writer %d: %v", w, err)
					return
				}
			}
		}()
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, ok, err := s.Get(ctx, tile.Key{Z: 1, X: 0, Y: 0}); err != nil || !ok {
					t.Errorf("reader: ok=%v err=%v", ok, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Tiles != 81 { // 1 seed + 4 writers * 20
		t.Errorf("tiles = %d, want 81", st.Tiles)
	}
}

func TestDurabilityAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.gpkg")

	s, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.PutBatch(context.Background(), []tile.Record{record(6, 3, 4, "persisted")}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	rec, ok, err := s2.Get(context.Background(), tile.Key{Z: 6, X: 3, Y: 4})
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if string(rec.Data) != "persisted" {
		t.Errorf("data = %q, want persisted", rec.Data)
	}
}
