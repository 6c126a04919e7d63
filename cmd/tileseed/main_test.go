package main

import (
	"path/filepath"
	"testing"
)

func TestRunNoArgs(t *testing.T) {
	if code := run(nil); code != ExitInvalidArgs {
		t.Errorf("run() = %d, want %d", code, ExitInvalidArgs)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if code := run([]string{"frobnicate"}); code != ExitInvalidArgs {
		t.Errorf("run(frobnicate) = %d, want %d", code, ExitInvalidArgs)
	}
}

func TestRunHelp(t *testing.T) {
	if code := run([]string{"help"}); code != ExitSuccess {
		t.Errorf("run(help) = %d, want %d", code, ExitSuccess)
	}
}

func TestSeedRequiresZoom(t *testing.T) {
	if code := run([]string{"seed"}); code != ExitInvalidArgs {
		t.Errorf("seed without -zoom = %d, want %d", code, ExitInvalidArgs)
	}
}

func TestSeedRequiresService(t *testing.T) {
	code := run([]string{"seed", "-zoom", "3", "-cache", filepath.Join(t.TempDir(), "c.gpkg")})
	if code != ExitConfigError {
		t.Errorf("seed without service = %d, want %d", code, ExitConfigError)
	}
}

func TestCheckRequiresCache(t *testing.T) {
	if code := run([]string{"check"}); code != ExitInvalidArgs {
		t.Errorf("check without -cache = %d, want %d", code, ExitInvalidArgs)
	}
}

func TestCheckEmptyCache(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "fresh.gpkg")
	if code := run([]string{"check", "-cache", cache}); code != ExitSuccess {
		t.Errorf("check on fresh cache = %d, want %d", code, ExitSuccess)
	}
}

func TestVacuumEmptyCache(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "fresh.gpkg")
	if code := run([]string{"vacuum", "-cache", cache, "-older-than", "24h"}); code != ExitSuccess {
		t.Errorf("vacuum on fresh cache = %d, want %d", code, ExitSuccess)
	}
}

func TestExportRequiresDestination(t *testing.T) {
	code := run([]string{"export", "-cache", filepath.Join(t.TempDir(), "c.gpkg")})
	if code != ExitInvalidArgs {
		t.Errorf("export without destination = %d, want %d", code, ExitInvalidArgs)
	}
}

func TestExportToFileBucket(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "cache.gpkg")
	dest := t.TempDir()

	// A fresh cache is still a valid export source.
	if code := run([]string{"check", "-cache", cache}); code != ExitSuccess {
		t.Fatal("could not create cache")
	}

	code := run([]string{
		"export",
		"-cache", cache,
		"-bucket", "file://" + dest,
		"-object", "backup.gpkg",
	})
	if code != ExitSuccess {
		t.Errorf("export to file bucket = %d, want %d", code, ExitSuccess)
	}
}
