package services

import "context"

type contextKey string

const (
	runIDKey       contextKey = "run_id"
	destinationKey contextKey = "destination"
	itemIDKey      contextKey = "item_id"
)

// WithRunID annotates context with the sync run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDestination annotates context with the destination album title.
func WithDestination(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, destinationKey, name)
}

// DestinationFromContext returns the destination title if present.
func DestinationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(destinationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithItemID annotates context with the local library item identifier.
func WithItemID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the item identifier if present.
func ItemIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
