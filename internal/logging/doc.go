// Package logging assembles the slog loggers used by albumsync.
//
// It owns the console and JSON handlers and the level/output plumbing. It also
// defines the structured field names (run_id, destination, item_id, outcome)
// that every component uses, so a run's log can be filtered per item and per
// outcome. WithContext tags a logger with the identifiers carried on a
// context; NewNop gives tests and wiring code a logger that cannot fail.
package logging
