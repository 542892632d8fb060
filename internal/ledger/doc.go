// Package ledger persists which (item, destination) pairs have been
// transferred to the remote album service.
//
// The ledger is the idempotency record for every run: a row is written only
// after the remote service confirms the item was added to the album, rows are
// never updated or removed, and repeated inserts of the same pair are no-ops.
// It is backed by SQLite (pure Go driver) with a synchronous=FULL journal so
// that a successful RecordSynced survives a crash immediately afterwards.
package ledger
