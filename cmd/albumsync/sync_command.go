package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"albumsync/internal/logging"
	"albumsync/internal/notifications"
	"albumsync/internal/preflight"
	"albumsync/internal/services"
	"albumsync/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		num         int
		all         bool
		dryRun      bool
		force       bool
		verbose     bool
		libraryPath string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Transfer shared album items that are not yet in the ledger",
		Long: `Sync reads every shared collection from the local library, subtracts the items
the ledger already records, and transfers the rest into remote albums of the
same name. Items whose bytes are not available locally are fetched by the
recovery tool in chunks after the local pass.

Runs are idempotent: interrupting a run and starting it again only transfers
what the ledger does not yet record.`,
		Example: `  albumsync sync --all --dry-run
  albumsync sync --num 3
  albumsync sync --all --force --library ~/Pictures/Shared`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				for _, r := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Name, r.Detail)
				}
				return fmt.Errorf("preflight failed (%d checks); run 'albumsync doctor' for details", len(failed))
			}

			runCtx := services.WithRunID(cmd.Context(), uuid.NewString())
			runLogger := logging.WithContext(runCtx, logger)

			var consentOut io.Writer
			if !dryRun {
				consentOut = cmd.ErrOrStderr()
			}
			rt, err := openSyncRuntime(cfg, logger, runtimeOptions{
				libraryPath:     libraryPath,
				recoveryVerbose: verbose || cfg.Recovery.Verbose,
				consentOut:      consentOut,
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			limit := num
			if all {
				limit = 0
			}
			plan, err := rt.engine.Plan(runCtx, limit)
			if err != nil {
				return err
			}
			if plan.Empty() {
				fmt.Fprintln(out, "All synced: every shared item is already recorded in the ledger.")
				return nil
			}
			fmt.Fprint(out, renderPlan(plan, rt.library.Path()))

			if !dryRun {
				if !force {
					if err := confirm(cmd, plan); err != nil {
						return err
					}
				}
				if err := rt.ensureAuthorized(runCtx); err != nil {
					return err
				}
			}

			summary, err := rt.engine.Execute(runCtx, plan, dryRun)
			fmt.Fprint(out, renderSummary(summary))
			notifyRun(runCtx, notifications.NewService(cfg), runLogger, summary, err)
			if err != nil {
				if errors.Is(err, syncer.ErrReauthFailed) {
					fmt.Fprintln(cmd.ErrOrStderr(), syncer.ReauthGuidance)
				}
				return err
			}
			if outstanding := summary.Outstanding(); outstanding > 0 && !dryRun {
				fmt.Fprintf(out, "%d items are still outstanding; rerun sync to retry them.\n", outstanding)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&num, "num", "n", 0, "Sync only the first N destinations with pending items")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Sync every destination with pending items")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be transferred without contacting the service")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Stream recovery tool output at info level")
	cmd.Flags().StringVar(&libraryPath, "library", "", "Library path overriding library.path")
	cmd.MarkFlagsMutuallyExclusive("num", "all")
	cmd.MarkFlagsOneRequired("num", "all")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("num") && num <= 0 {
			return fmt.Errorf("--num must be positive, got %d", num)
		}
		return nil
	}

	return cmd
}

// confirm asks the operator to press Enter before a live run. Without a
// terminal on stdin the run must be forced.
func confirm(cmd *cobra.Command, plan syncer.Plan) error {
	in := cmd.InOrStdin()
	if !isTerminal(in) {
		return errors.New("refusing to sync without confirmation; rerun with --force to skip the prompt")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Press Enter to transfer %d items (Ctrl+C to abort): ", plan.Pending())
	if _, err := bufio.NewReader(in).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	return nil
}

func renderPlan(plan syncer.Plan, libraryPath string) string {
	var b strings.Builder
	if libraryPath != "" {
		fmt.Fprintf(&b, "Library: %s\n", libraryPath)
	}
	rows := make([][]string, 0, len(plan.Work))
	for _, work := range plan.Work {
		rows = append(rows, []string{work.Destination, strconv.Itoa(len(work.Items))})
	}
	footer := []string{"Total", strconv.Itoa(plan.Pending())}
	b.WriteString(renderTable([]string{"Destination", "Pending"}, rows, []columnAlignment{alignLeft, alignRight}, footer))
	b.WriteString("\n")
	if skipped := plan.TotalDestinations - len(plan.Work); skipped > 0 {
		fmt.Fprintf(&b, "%d more destinations (%d items) left for a later run.\n", skipped, plan.TotalPending-plan.Pending())
	}
	return b.String()
}

func renderSummary(s syncer.Summary) string {
	var rows [][]string
	add := func(label string, value int) {
		rows = append(rows, []string{label, strconv.Itoa(value)})
	}
	if s.DryRun {
		add("Would sync", s.WouldSync)
	} else {
		add("Synced", s.Synced)
		add("Recovered", s.Recovered)
		add("Failed", s.Failed)
		add("Unresolved", s.Unresolved)
		add("Still missing", s.StillMissing)
		add("Skipped in recovery", s.SkippedRecovery)
		add("Skipped destinations", s.SkippedDestinations)
	}
	footer := []string{"Duration", s.Duration.Round(100 * time.Millisecond).String()}
	return renderTable([]string{"Outcome", "Items"}, rows, []columnAlignment{alignLeft, alignRight}, footer) + "\n"
}

// notifyRun pushes the run outcome. Interrupted runs are not reported and
// delivery failures only warn.
func notifyRun(ctx context.Context, notifier notifications.Service, logger *slog.Logger, summary syncer.Summary, runErr error) {
	if ctx.Err() != nil {
		return
	}
	var err error
	if runErr != nil {
		err = notifier.NotifyError(ctx, runErr, "sync")
	} else {
		err = notifier.NotifyRunCompleted(ctx, notifications.RunReport{
			DryRun:              summary.DryRun,
			Synced:              summary.Synced,
			Recovered:           summary.Recovered,
			Outstanding:         summary.Outstanding(),
			SkippedDestinations: summary.SkippedDestinations,
			Duration:            summary.Duration,
		})
	}
	if err != nil {
		logger.Warn("notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
