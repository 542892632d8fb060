package services_test

import (
	"context"
	"testing"

	"albumsync/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithDestination(ctx, "Trip 2023")
	ctx = services.WithItemID(ctx, "ABCD-1234")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if dest, ok := services.DestinationFromContext(ctx); !ok || dest != "Trip 2023" {
		t.Fatalf("unexpected destination: %v %v", dest, ok)
	}
	if id, ok := services.ItemIDFromContext(ctx); !ok || id != "ABCD-1234" {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithDestination(ctx, "")
	ctx = services.WithItemID(ctx, "")
	if _, ok := services.DestinationFromContext(ctx); ok {
		t.Fatal("expected no destination value")
	}
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("expected no item id value")
	}
}
