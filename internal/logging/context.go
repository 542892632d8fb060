package logging

import (
	"context"
	"log/slog"

	"albumsync/internal/services"
)

const (
	// FieldComponent names the subsystem emitting a log line.
	FieldComponent = "component"
	// FieldRunID correlates every line of a single sync run.
	FieldRunID = "run_id"
	// FieldDestination is the remote album title an item is being sent to.
	FieldDestination = "destination"
	// FieldItemID is the local library identifier of a media item.
	FieldItemID = "item_id"
	// FieldOutcome is the terminal outcome of an item within a run.
	FieldOutcome = "outcome"
	// FieldAttempt is the 1-based attempt number of a retried request.
	FieldAttempt = "attempt"
	// FieldChunk is the 1-based index of a recovery chunk.
	FieldChunk = "chunk"
	// FieldEventType classifies a notable event for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing next step.
	FieldErrorHint = "error_hint"
)

// Item outcomes reported under FieldOutcome.
const (
	OutcomeSynced            = "synced"
	OutcomeFailed            = "failed"
	OutcomeUnresolved        = "unresolved"
	OutcomeQueuedForRecovery = "queued_for_recovery"
	OutcomeStillMissing      = "still_missing"
	OutcomeDryRun            = "dry_run"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if dest, ok := services.DestinationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDestination, dest))
	}
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldItemID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
