package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"albumsync/internal/backlog"
	"albumsync/internal/fileutil"
	"albumsync/internal/library"
	"albumsync/internal/logging"
	"albumsync/internal/recovery"
	"albumsync/internal/services"
)

// ErrReauthFailed reports that a destination still could not be resolved
// after re-authenticating.
var ErrReauthFailed = fmt.Errorf("%w: access still denied after re-authentication", services.ErrAuthorization)

// ReauthGuidance is shown to the operator when ErrReauthFailed halts a run.
const ReauthGuidance = `Ensure the Google Cloud project is in Testing mode with your account added as a test user,
and check every permission box on the Google consent screen.`

// Ledger is the ledger surface the engine reads and writes.
type Ledger interface {
	backlog.Ledger
	RecordSynced(ctx context.Context, itemID, destination string) error
}

// Resolver maps destination names to remote ids.
type Resolver interface {
	Resolve(ctx context.Context, name string, dryRun bool) (string, error)
	Forget(name string)
}

// Credentials can replace the cached credentials.
type Credentials interface {
	Reauthenticate(ctx context.Context) error
}

// Recoverer fetches and transfers items whose bytes are not local.
type Recoverer interface {
	Run(ctx context.Context, batch recovery.Batch) (recovery.Report, error)
}

// Dependencies are the collaborators of an Engine.
type Dependencies struct {
	Library     library.Library
	Ledger      Ledger
	Resolver    Resolver
	Transfer    recovery.Transferer
	Recovery    Recoverer
	Credentials Credentials
	// TempRoot holds per-run export directories.
	TempRoot string
	Logger   *slog.Logger
}

// Engine runs plans against its dependencies.
type Engine struct {
	library     library.Library
	ledger      Ledger
	resolver    Resolver
	transfer    recovery.Transferer
	recovery    Recoverer
	credentials Credentials
	tempRoot    string
	logger      *slog.Logger
	now         func() time.Time
}

// New validates deps and builds an Engine.
func New(deps Dependencies) (*Engine, error) {
	switch {
	case deps.Library == nil:
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "new", "library required", nil)
	case deps.Ledger == nil:
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "new", "ledger required", nil)
	case deps.Resolver == nil:
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "new", "resolver required", nil)
	case deps.Transfer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "new", "transfer pipeline required", nil)
	case deps.Recovery == nil:
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "new", "recovery required", nil)
	}
	return &Engine{
		library:     deps.Library,
		ledger:      deps.Ledger,
		resolver:    deps.Resolver,
		transfer:    deps.Transfer,
		recovery:    deps.Recovery,
		credentials: deps.Credentials,
		tempRoot:    deps.TempRoot,
		logger:      logging.NewComponentLogger(deps.Logger, "syncer"),
		now:         time.Now,
	}, nil
}

// Plan is the work selected for one run.
type Plan struct {
	Work []backlog.Work
	// TotalPending and TotalDestinations describe the backlog before Limit.
	TotalPending      int
	TotalDestinations int
}

// Pending counts the items the plan will attempt.
func (p Plan) Pending() int {
	return backlog.Pending(p.Work)
}

// Empty reports whether the library is fully synced.
func (p Plan) Empty() bool {
	return p.TotalPending == 0
}

// Plan reads the library and keeps the first limit destinations with pending
// items (limit <= 0 keeps all).
func (e *Engine) Plan(ctx context.Context, limit int) (Plan, error) {
	collections, err := e.library.SharedCollections(ctx)
	if err != nil {
		if errors.Is(err, services.ErrLibrary) || ctx.Err() != nil {
			return Plan{}, err
		}
		return Plan{}, services.Wrap(services.ErrLibrary, "syncer", "plan", "read shared collections", err)
	}
	work, err := backlog.Compute(ctx, collections, e.ledger)
	if err != nil {
		if errors.Is(err, services.ErrLedger) || ctx.Err() != nil {
			return Plan{}, err
		}
		return Plan{}, services.Wrap(services.ErrLedger, "syncer", "plan", "compute backlog", err)
	}
	plan := Plan{
		Work:              backlog.Limit(work, limit),
		TotalPending:      backlog.Pending(work),
		TotalDestinations: len(work),
	}
	e.logger.Info("backlog computed",
		logging.Int("collections", len(collections)),
		logging.Int("destinations", plan.TotalDestinations),
		logging.Int("pending", plan.TotalPending),
		logging.Int("selected_destinations", len(plan.Work)),
		logging.Int("selected_items", plan.Pending()),
	)
	return plan, nil
}

// Execute runs plan. The returned error is non-nil only when the run halted;
// the summary then reflects the work done before the halt.
func (e *Engine) Execute(ctx context.Context, plan Plan, dryRun bool) (Summary, error) {
	start := e.now()
	summary := Summary{DryRun: dryRun}
	logger := logging.WithContext(ctx, e.logger)

	runDir := ""
	if !dryRun {
		dir, err := e.makeRunDir()
		if err != nil {
			return summary, err
		}
		runDir = dir
		defer func() {
			if err := os.RemoveAll(runDir); err != nil {
				logger.Warn("failed to remove run directory", logging.String("path", runDir), logging.Error(err))
			}
		}()
	}

	logger.Info("sync started",
		logging.Int("destinations", len(plan.Work)),
		logging.Int("items", plan.Pending()),
		logging.Bool("dry_run", dryRun),
	)
	var runErr error
	for _, work := range plan.Work {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := e.syncDestination(ctx, work, runDir, dryRun, &summary); err != nil {
			runErr = err
			break
		}
	}
	summary.Duration = e.now().Sub(start)

	if runErr != nil {
		logging.ErrorWithContext(logger, "sync halted", haltEvent(runErr),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, haltHint(runErr)),
		)
		return summary, runErr
	}
	logger.Info("sync finished", summary.LogAttrs()...)
	return summary, nil
}

func (e *Engine) makeRunDir() (string, error) {
	root := e.tempRoot
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "syncer", "execute", "create temp root", err)
	}
	dir, err := os.MkdirTemp(root, "run-")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "syncer", "execute", "create run directory", err)
	}
	return dir, nil
}

func (e *Engine) syncDestination(ctx context.Context, work backlog.Work, runDir string, dryRun bool, summary *Summary) error {
	ctx = services.WithDestination(ctx, work.Destination)
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("processing destination", logging.Int("items", len(work.Items)))

	if dryRun {
		for _, item := range work.Items {
			summary.WouldSync++
			logging.WithContext(services.WithItemID(ctx, item.ID), e.logger).Info("would sync",
				logging.String("file", item.Filename),
				logging.Outcome(logging.OutcomeDryRun),
			)
		}
		return nil
	}

	destinationID, err := e.resolve(ctx, work.Destination)
	if err != nil {
		if services.IsFatal(err) || ctx.Err() != nil {
			return err
		}
		summary.SkippedDestinations++
		summary.Unresolved += len(work.Items)
		logger.Warn("destination could not be resolved; skipping",
			logging.Int("items", len(work.Items)),
			logging.Outcome(logging.OutcomeUnresolved),
			logging.Error(err),
		)
		return nil
	}

	var missing []library.Item
	for _, item := range work.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		queued, err := e.syncItem(ctx, work.Destination, item, destinationID, runDir, summary)
		if err != nil {
			return err
		}
		if queued {
			missing = append(missing, item)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	summary.Missing += len(missing)
	report, err := e.recovery.Run(ctx, recovery.Batch{
		Destination:   work.Destination,
		DestinationID: destinationID,
		Items:         missing,
		OutputDir:     runDir,
		LibraryPath:   e.library.Path(),
	})
	summary.addRecovery(report)
	return err
}

// syncItem exports and transfers one item. It reports true when the item has
// no local bytes and must go to recovery. A non-nil error halts the run.
func (e *Engine) syncItem(ctx context.Context, destination string, item library.Item, destinationID, runDir string, summary *Summary) (bool, error) {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, e.logger)

	files, err := e.library.Export(ctx, item, runDir)
	if err != nil || len(files) == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		attrs := []logging.Attr{
			logging.String("file", item.Filename),
			logging.Outcome(logging.OutcomeQueuedForRecovery),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logger.Warn("not available locally; queued for recovery", logging.Args(attrs...)...)
		return true, nil
	}
	defer func() {
		if err := fileutil.RemoveAll(files...); err != nil {
			logger.Warn("failed to remove exported files", logging.Error(err))
		}
	}()

	ok, err := e.transfer.TransferAs(ctx, files[0], item.UploadName(files[0]), destinationID)
	if !ok {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		outcome := logging.OutcomeFailed
		if services.Classify(err) == services.KindTransient {
			outcome = logging.OutcomeUnresolved
			summary.Unresolved++
		} else {
			summary.Failed++
		}
		logger.Warn("transfer failed; will retry next run",
			logging.String("file", item.Filename),
			logging.Outcome(outcome),
			logging.Error(err),
		)
		return false, nil
	}

	if err := e.ledger.RecordSynced(ctx, item.ID, destination); err != nil {
		return false, err
	}
	summary.Synced++
	logger.Info("synced",
		logging.String("file", item.Filename),
		logging.Outcome(logging.OutcomeSynced),
	)
	return false, nil
}

// resolve looks up the destination, re-authenticating once when the token
// lacks the required scopes.
func (e *Engine) resolve(ctx context.Context, name string) (string, error) {
	id, err := e.resolver.Resolve(ctx, name, false)
	if err == nil || !errors.Is(err, services.ErrInsufficientScope) {
		return id, err
	}
	logger := logging.WithContext(ctx, e.logger)
	if e.credentials == nil {
		return "", fmt.Errorf("%w: %w", ErrReauthFailed, err)
	}
	logger.Warn("insufficient scopes; re-authenticating",
		logging.String(logging.FieldEventType, "reauthenticate"),
		logging.Error(err),
	)
	if authErr := e.credentials.Reauthenticate(ctx); authErr != nil {
		return "", fmt.Errorf("%w: %w", ErrReauthFailed, authErr)
	}
	e.resolver.Forget(name)
	id, err = e.resolver.Resolve(ctx, name, false)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrReauthFailed, err)
	}
	return id, nil
}

func haltEvent(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "run_cancelled"
	case errors.Is(err, recovery.ErrLibraryUnauthorized):
		return "library_unauthorized"
	case errors.Is(err, ErrReauthFailed):
		return "reauth_failed"
	case errors.Is(err, services.ErrLedger):
		return "ledger_write"
	default:
		return "run_failed"
	}
}

func haltHint(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "rerun to continue; synced items are skipped"
	case errors.Is(err, recovery.ErrLibraryUnauthorized):
		return "grant Photos access to the terminal app"
	case errors.Is(err, ErrReauthFailed):
		return "check the OAuth consent screen and test users"
	case errors.Is(err, services.ErrLedger):
		return "check free space and permissions of the ledger file"
	default:
		return "check logs for details"
	}
}
