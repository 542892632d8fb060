// Package backlog computes which items still need to reach each destination.
package backlog

import (
	"context"

	"albumsync/internal/library"
)

// Ledger is the read side of the sync ledger.
type Ledger interface {
	SyncedItems(ctx context.Context, destination string) (map[string]struct{}, error)
}

// Work is the unsynced items of one destination, in library order.
type Work struct {
	Destination string
	Items       []library.Item
}

// Compute filters every collection against the ledger. Destinations with
// nothing left are omitted; collection and item order are preserved.
func Compute(ctx context.Context, collections []library.Collection, ledger Ledger) ([]Work, error) {
	var work []Work
	for _, collection := range collections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		synced, err := ledger.SyncedItems(ctx, collection.Name)
		if err != nil {
			return nil, err
		}
		var pending []library.Item
		for _, item := range collection.Items {
			if _, done := synced[item.ID]; !done {
				pending = append(pending, item)
			}
		}
		if len(pending) > 0 {
			work = append(work, Work{Destination: collection.Name, Items: pending})
		}
	}
	return work, nil
}

// Limit keeps the first n destinations. n <= 0 keeps everything.
func Limit(work []Work, n int) []Work {
	if n <= 0 || n >= len(work) {
		return work
	}
	return work[:n]
}

// Pending counts the items across work.
func Pending(work []Work) int {
	total := 0
	for _, w := range work {
		total += len(w.Items)
	}
	return total
}
