package backlog_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"albumsync/internal/backlog"
	"albumsync/internal/library"
	"albumsync/internal/testsupport"
)

func collection(name string, ids ...string) library.Collection {
	c := library.Collection{Name: name}
	for _, id := range ids {
		c.Items = append(c.Items, library.Item{ID: id, Filename: id + ".jpg"})
	}
	return c
}

func ids(items []library.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestComputeFiltersAgainstLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	testsupport.RecordSynced(t, store, "D1", "a")
	testsupport.RecordSynced(t, store, "D2", "b", "c")
	testsupport.RecordSynced(t, store, "D3", "e")

	collections := []library.Collection{
		collection("D1", "a", "b", "c"),
		collection("D2", "a", "b", "c", "d"),
		collection("D3", "e"),
	}
	work, err := backlog.Compute(context.Background(), collections, store)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(work) != 2 {
		t.Fatalf("expected 2 destinations with work, got %+v", work)
	}
	if work[0].Destination != "D1" || !slices.Equal(ids(work[0].Items), []string{"b", "c"}) {
		t.Fatalf("unexpected D1 work %+v", work[0])
	}
	if work[1].Destination != "D2" || !slices.Equal(ids(work[1].Items), []string{"a", "d"}) {
		t.Fatalf("unexpected D2 work %+v", work[1])
	}
	if backlog.Pending(work) != 4 {
		t.Fatalf("expected 4 pending, got %d", backlog.Pending(work))
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Fatalf("Compute must not write the ledger, count=%d", count)
	}
}

func TestLimitKeepsFirstDestinations(t *testing.T) {
	work := []backlog.Work{{Destination: "A"}, {Destination: "B"}, {Destination: "C"}}
	if got := backlog.Limit(work, 2); len(got) != 2 || got[1].Destination != "B" {
		t.Fatalf("unexpected limit result %+v", got)
	}
	if got := backlog.Limit(work, 0); len(got) != 3 {
		t.Fatalf("expected zero to keep all, got %d", len(got))
	}
	if got := backlog.Limit(work, 10); len(got) != 3 {
		t.Fatalf("expected oversized limit to keep all, got %d", len(got))
	}
}

type failingLedger struct{}

func (failingLedger) SyncedItems(context.Context, string) (map[string]struct{}, error) {
	return nil, errors.New("locked")
}

func TestComputePropagatesLedgerErrors(t *testing.T) {
	_, err := backlog.Compute(context.Background(), []library.Collection{collection("D1", "a")}, failingLedger{})
	if err == nil {
		t.Fatal("expected ledger error")
	}
}
