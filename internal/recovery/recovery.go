package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"albumsync/internal/fileutil"
	"albumsync/internal/library"
	"albumsync/internal/logging"
	"albumsync/internal/services"
)

const (
	// DefaultChunkSize bounds the ids passed to one collaborator invocation.
	DefaultChunkSize = 50
	// DefaultTimeout bounds one collaborator invocation.
	DefaultTimeout = 300 * time.Second

	authorizationSignature = "could not get authorization"
)

// ErrLibraryUnauthorized reports that the recovery tool was denied access to
// the library. It halts the run.
var ErrLibraryUnauthorized = fmt.Errorf("%w: library access denied to recovery tool", services.ErrAuthorization)

// Remediation is shown to the operator when ErrLibraryUnauthorized halts a run.
const Remediation = `Missing permissions for the Photos library.
  1. Open System Settings > Privacy & Security > Photos.
  2. Enable access for Terminal, iTerm or Visual Studio Code.
  3. If your app is not listed, run albumsync from the macOS Terminal app instead.`

// Transferer sends one local file into a destination under the given remote
// filename.
type Transferer interface {
	TransferAs(ctx context.Context, localPath, name, destinationID string) (bool, error)
}

// Recorder persists confirmed transfers.
type Recorder interface {
	RecordSynced(ctx context.Context, itemID, destination string) error
}

// Batch is the missing set of one destination.
type Batch struct {
	Destination   string
	DestinationID string
	Items         []library.Item
	OutputDir     string
	LibraryPath   string
}

// Report counts what happened to a batch.
type Report struct {
	Synced         int
	Failed         int
	// Unresolved counts recovered items whose transfer ran out of retries.
	Unresolved     int
	StillMissing   int
	SkippedChunks  int
	TimedOutChunks int
	// Skipped counts items in skipped or timed-out chunks.
	Skipped int
}

// Add accumulates other into r.
func (r *Report) Add(other Report) {
	r.Synced += other.Synced
	r.Failed += other.Failed
	r.Unresolved += other.Unresolved
	r.StillMissing += other.StillMissing
	r.SkippedChunks += other.SkippedChunks
	r.TimedOutChunks += other.TimedOutChunks
	r.Skipped += other.Skipped
}

// Option configures a Recovery.
type Option func(*Recovery)

// WithChunkSize overrides the chunk size.
func WithChunkSize(n int) Option {
	return func(r *Recovery) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// WithTimeout overrides the per-chunk timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Recovery) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recovery) {
		r.logger = logger
	}
}

// Recovery drives the collaborator and transfers what it produces.
type Recovery struct {
	collaborator Collaborator
	transfer     Transferer
	ledger       Recorder
	chunkSize    int
	timeout      time.Duration
	logger       *slog.Logger
}

// New builds a Recovery.
func New(collaborator Collaborator, transfer Transferer, ledger Recorder, opts ...Option) *Recovery {
	r := &Recovery{
		collaborator: collaborator,
		transfer:     transfer,
		ledger:       ledger,
		chunkSize:    DefaultChunkSize,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "recovery")
	return r
}

// Chunks splits items into consecutive slices of at most size items.
func Chunks(items []library.Item, size int) [][]library.Item {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]library.Item
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Run recovers batch chunk by chunk. The returned error is non-nil only for
// conditions that must halt the run: cancellation, ErrLibraryUnauthorized or
// a ledger write failure.
func (r *Recovery) Run(ctx context.Context, batch Batch) (Report, error) {
	var report Report
	if len(batch.Items) == 0 {
		return report, nil
	}
	ctx = services.WithDestination(ctx, batch.Destination)
	logger := logging.WithContext(ctx, r.logger)
	chunks := Chunks(batch.Items, r.chunkSize)
	logger.Info("recovering missing items",
		logging.Int("items", len(batch.Items)),
		logging.Int("chunks", len(chunks)),
	)

	for index, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		chunkLogger := logger.With(logging.Int(logging.FieldChunk, index+1))
		ids := make([]string, len(chunk))
		for i, item := range chunk {
			ids[i] = item.ID
		}

		chunkCtx, cancel := context.WithTimeout(ctx, r.timeout)
		outcome, err := r.collaborator.Recover(chunkCtx, batch.OutputDir, ids, batch.LibraryPath)
		timedOut := errors.Is(chunkCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err != nil || timedOut {
			r.cleanup(batch.OutputDir, ids, chunkLogger)
			if parentErr := ctx.Err(); parentErr != nil {
				return report, parentErr
			}
			report.Skipped += len(chunk)
			if timedOut {
				report.TimedOutChunks++
				chunkLogger.Warn("recovery chunk timed out; skipping",
					logging.Duration("timeout", r.timeout),
					logging.Int("items", len(chunk)),
				)
				continue
			}
			report.SkippedChunks++
			chunkLogger.Warn("recovery chunk failed; skipping",
				logging.Int("items", len(chunk)),
				logging.Error(err),
			)
			continue
		}
		if !outcome.Succeeded() {
			r.cleanup(batch.OutputDir, ids, chunkLogger)
			if unauthorized(outcome) {
				logging.ErrorWithContext(chunkLogger, "recovery tool could not get authorization", "library_unauthorized",
					logging.String(logging.FieldErrorHint, "grant Photos access to the terminal app"),
				)
				return report, fmt.Errorf("%w\n%s", ErrLibraryUnauthorized, Remediation)
			}
			report.SkippedChunks++
			report.Skipped += len(chunk)
			chunkLogger.Warn("recovery chunk failed; skipping",
				logging.Int("exit_code", outcome.ExitCode),
				logging.String("stderr", lastLine(outcome.Stderr)),
			)
			continue
		}

		chunkLogger.Debug("recovery chunk finished", logging.Int("items", len(chunk)))
		for _, item := range chunk {
			if err := r.transferItem(ctx, batch, item, &report); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

func (r *Recovery) transferItem(ctx context.Context, batch Batch, item library.Item, report *Report) error {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, r.logger)

	files, err := fileutil.FilesWithStem(batch.OutputDir, item.ID)
	if err != nil || len(files) == 0 {
		report.StillMissing++
		attrs := []logging.Attr{logging.String("file", item.Filename), logging.Outcome(logging.OutcomeStillMissing)}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logger.Warn("still missing after recovery", logging.Args(attrs...)...)
		return nil
	}
	defer func() {
		if err := fileutil.RemoveAll(files...); err != nil {
			logger.Warn("failed to remove recovered files", logging.Error(err))
		}
	}()

	// Only the first file is sent; live photo motion companions are dropped.
	ok, err := r.transfer.TransferAs(ctx, files[0], item.UploadName(files[0]), batch.DestinationID)
	if !ok {
		outcome := logging.OutcomeFailed
		if services.Classify(err) == services.KindTransient {
			outcome = logging.OutcomeUnresolved
			report.Unresolved++
		} else {
			report.Failed++
		}
		logger.Warn("recovered item not transferred",
			logging.String("file", item.Filename),
			logging.Outcome(outcome),
			logging.Error(err),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return nil
	}
	if err := r.ledger.RecordSynced(ctx, item.ID, batch.Destination); err != nil {
		return err
	}
	report.Synced++
	logger.Info("recovered item synced",
		logging.String("file", item.Filename),
		logging.Outcome(logging.OutcomeSynced),
	)
	return nil
}

// cleanup removes partial output left by a skipped chunk.
func (r *Recovery) cleanup(dir string, ids []string, logger *slog.Logger) {
	for _, id := range ids {
		files, err := fileutil.FilesWithStem(dir, id)
		if err != nil {
			continue
		}
		if err := fileutil.RemoveAll(files...); err != nil {
			logger.Warn("failed to remove partial recovery output", logging.Error(err))
		}
	}
}

func unauthorized(outcome Outcome) bool {
	return strings.Contains(outcome.Stdout, authorizationSignature) ||
		strings.Contains(outcome.Stderr, authorizationSignature)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
