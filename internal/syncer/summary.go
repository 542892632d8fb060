package syncer

import (
	"log/slog"
	"time"

	"albumsync/internal/logging"
	"albumsync/internal/recovery"
)

// Summary counts item outcomes for one run.
type Summary struct {
	DryRun bool
	// Synced counts items transferred straight from the local library.
	Synced int
	// Failed counts items the service rejected.
	Failed int
	// Unresolved counts items that ran out of retries or whose destination
	// could not be resolved.
	Unresolved int
	// Missing counts items queued for recovery.
	Missing      int
	Recovered    int
	StillMissing int
	// SkippedRecovery counts items in recovery chunks that timed out or failed.
	SkippedRecovery     int
	SkippedDestinations int
	WouldSync           int
	Duration            time.Duration
}

// Transferred counts every item recorded in the ledger this run.
func (s Summary) Transferred() int {
	return s.Synced + s.Recovered
}

// Outstanding counts items left for a later run.
func (s Summary) Outstanding() int {
	return s.Failed + s.Unresolved + s.StillMissing + s.SkippedRecovery
}

func (s *Summary) addRecovery(report recovery.Report) {
	s.Recovered += report.Synced
	s.Failed += report.Failed
	s.Unresolved += report.Unresolved
	s.StillMissing += report.StillMissing
	s.SkippedRecovery += report.Skipped
}

// LogAttrs renders the summary as log arguments.
func (s Summary) LogAttrs() []any {
	attrs := []slog.Attr{
		logging.Int("synced", s.Synced),
		logging.Int("recovered", s.Recovered),
		logging.Int("failed", s.Failed),
		logging.Int("unresolved", s.Unresolved),
		logging.Int("missing", s.Missing),
		logging.Int("still_missing", s.StillMissing),
		logging.Int("skipped_recovery", s.SkippedRecovery),
		logging.Int("skipped_destinations", s.SkippedDestinations),
		logging.Duration("duration", s.Duration),
	}
	if s.DryRun {
		attrs = append(attrs, logging.Int("would_sync", s.WouldSync))
	}
	return logging.Args(attrs...)
}
