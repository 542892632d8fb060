package testsupport

import (
	"context"
	"testing"

	"albumsync/internal/config"
	"albumsync/internal/ledger"
)

// MustOpenLedger opens the ledger configured in cfg and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordSynced seeds the ledger with already-transferred pairs.
func RecordSynced(t testing.TB, store *ledger.Store, destination string, itemIDs ...string) {
	t.Helper()

	for _, id := range itemIDs {
		if err := store.RecordSynced(context.Background(), id, destination); err != nil {
			t.Fatalf("RecordSynced(%s, %s): %v", id, destination, err)
		}
	}
}
