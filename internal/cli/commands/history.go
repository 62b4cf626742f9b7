package commands

import (
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/wpkernel/wpkgen/internal/cli/ui"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
		prune  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded builds",
		Long: `List builds recorded in the build ledger, newest first. Both generate
and the compile service record every successful build.`,
		Example: `  wpkgen history
  wpkgen history --limit 5 --json
  wpkgen history --prune 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stdout := cmd.OutOrStdout()

			if !a.cfg.Ledger.Enabled {
				ui.Message{
					Level:        ui.LevelError,
					Context:      "ledger disabled",
					Problem:      "The build ledger is turned off.",
					HelpCommands: []string{"Enable it: set ledger.enabled: true in wpkgen.yaml"},
					NoColor:      a.noColor,
				}.Write(cmd.ErrOrStderr())
				return errReported
			}
			store, err := a.openLedger(ctx)
			if err != nil {
				return fmt.Errorf("failed to open build ledger: %w", err)
			}
			defer store.Close()

			if prune > 0 {
				n, err := store.Prune(ctx, time.Now().Add(-prune))
				if err != nil {
					return err
				}
				ui.Success(stdout, fmt.Sprintf("Pruned %d builds older than %s", n, prune), a.noColor)
				return nil
			}

			entries, err := store.List(ctx, limit)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, string(data))
				return nil
			}

			if len(entries) == 0 {
				ui.Message{Level: ui.LevelInfo, Problem: "No builds recorded yet", NoColor: a.noColor}.Write(stdout)
				return nil
			}
			table := ui.NewTable(stdout, a.noColor, "WHEN", "PLAN", "NAMESPACE", "FILES", "WARNINGS", "FALLBACKS", "CACHE", "DURATION")
			for _, e := range entries {
				cached := "miss"
				if e.Cached {
					cached = "hit"
				}
				table.AddRow(
					e.CreatedAt.Local().Format(time.DateTime),
					e.PlanPath,
					e.Namespace,
					strconv.Itoa(e.Files),
					strconv.Itoa(e.Warnings),
					strconv.Itoa(e.Fallbacks),
					cached,
					e.Duration.Round(time.Millisecond).String(),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of builds to show; 0 shows all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete builds older than this instead of listing")

	return cmd
}
