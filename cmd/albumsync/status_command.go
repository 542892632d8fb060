package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"albumsync/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the ledger records per destination",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.Summary(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ledger: %s\n", store.Path())
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No items synced yet.")
				return nil
			}
			fmt.Fprintln(out, renderLedgerSummary(summaries))
			return nil
		},
	}
}

func renderLedgerSummary(summaries []ledger.DestinationSummary) string {
	rows := make([][]string, 0, len(summaries))
	total := 0
	var latest time.Time
	for _, s := range summaries {
		total += s.Items
		if s.LastSynced.After(latest) {
			latest = s.LastSynced
		}
		rows = append(rows, []string{s.Destination, strconv.Itoa(s.Items), formatSyncedAt(s.LastSynced)})
	}
	footer := []string{"Total", strconv.Itoa(total), formatSyncedAt(latest)}
	return renderTable(
		[]string{"Destination", "Items", "Last synced"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
		footer,
	)
}

func formatSyncedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
