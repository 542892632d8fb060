package runlock_test

import (
	"errors"
	"path/filepath"
	"testing"

	"albumsync/internal/runlock"
)

func TestAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.db.lock")

	first, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if first.Path() != path {
		t.Fatalf("unexpected path %q", first.Path())
	}

	if _, err := runlock.Acquire(path); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	second, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	t.Cleanup(func() { _ = second.Release() })
}
