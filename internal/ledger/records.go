package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"albumsync/internal/services"
)

// DestinationSummary aggregates ledger rows for one destination.
type DestinationSummary struct {
	Destination string
	Items       int
	LastSynced  time.Time
}

// HasSynced reports whether itemID has already been transferred to destination.
func (s *Store) HasSynced(ctx context.Context, itemID, destination string) (bool, error) {
	var found int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT 1 FROM synced_items WHERE item_id = ? AND destination_name = ?",
			itemID, destination,
		).Scan(&found)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, services.Wrap(services.ErrLedger, "ledger", "lookup", itemID, err)
	}
	return true, nil
}

// RecordSynced durably records that itemID is present in destination.
// Recording an existing pair succeeds without changing the ledger.
func (s *Store) RecordSynced(ctx context.Context, itemID, destination string) error {
	syncedAt := s.now().UTC().Format(time.RFC3339Nano)
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO synced_items (item_id, destination_name, synced_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT(item_id, destination_name) DO NOTHING`,
			itemID, destination, syncedAt,
		)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "record", itemID, err)
	}
	return nil
}

// SyncedItems returns the set of item IDs already recorded for destination.
func (s *Store) SyncedItems(ctx context.Context, destination string) (map[string]struct{}, error) {
	synced := make(map[string]struct{})
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT item_id FROM synced_items WHERE destination_name = ?", destination)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			synced[id] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "list", destination, err)
	}
	return synced, nil
}

// Count returns the total number of recorded pairs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var total int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM synced_items").Scan(&total)
	})
	if err != nil {
		return 0, services.Wrap(services.ErrLedger, "ledger", "count", "", err)
	}
	return total, nil
}

// Summary returns per-destination totals ordered by destination name.
func (s *Store) Summary(ctx context.Context) ([]DestinationSummary, error) {
	var out []DestinationSummary
	err := retryOnBusy(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx,
			`SELECT destination_name, COUNT(1), MAX(synced_at)
			 FROM synced_items
			 GROUP BY destination_name
			 ORDER BY destination_name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				summary DestinationSummary
				last    string
			)
			if err := rows.Scan(&summary.Destination, &summary.Items, &last); err != nil {
				return err
			}
			if ts, parseErr := time.Parse(time.RFC3339Nano, last); parseErr == nil {
				summary.LastSynced = ts
			}
			out = append(out, summary)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "summary", "", err)
	}
	return out, nil
}
