package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"albumsync/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials, and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, preflight.CheckTokenFromConfig(cfg))
			if !offline {
				results = append(results, preflight.CheckRemote(cmd.Context(), cfg.Remote.BaseURL))
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, passLabel(r.Passed), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil, nil))

			blocking := 0
			statuses := preflight.CheckSystemDeps(cfg)
			if len(statuses) > 0 {
				depRows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					state := "ok"
					detail := s.Path
					switch {
					case s.Blocking():
						state = "missing"
						detail = s.Detail
						blocking++
					case !s.Available:
						state = "optional"
						detail = s.Detail
					}
					depRows = append(depRows, []string{s.Name, state, detail, s.Description})
				}
				fmt.Fprintln(out, renderTable([]string{"Tool", "Status", "Path", "Used for"}, depRows, nil, nil))
			}

			failed := preflight.Failed(results)
			if len(failed) == 0 && blocking == 0 {
				fmt.Fprintln(out, "All checks passed")
				return nil
			}
			names := make([]string, 0, len(failed)+blocking)
			for _, r := range failed {
				names = append(names, r.Name)
			}
			for _, s := range statuses {
				if s.Blocking() {
					names = append(names, s.Name)
				}
			}
			return fmt.Errorf("%d checks failed: %s", len(names), strings.Join(names, ", "))
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the remote reachability probe")
	return cmd
}

func passLabel(passed bool) string {
	if passed {
		return "ok"
	}
	return "fail"
}
