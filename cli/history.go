package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/analyzer"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/report"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/store"

	"github.com/spf13/cobra"
)

var limit int

func history() {
	historyCmd := &cobra.Command{
		Use:   "history [project-id]",
		Short: "List stored assessment reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := 0
			if len(args) == 1 {
				var err error
				projectID, err = parseProjectID(args[0])
				if err != nil {
					return err
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.Output.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.History(config.Ctx, projectID, limit)
			if err != nil {
				return err
			}

			report.ResolveHistory(entries)
			return nil
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of reports to list, 0 for all")

	showCmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Print a stored assessment report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.Output.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			return showReport(config.Ctx, db, args[0])
		},
	}

	historyCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
}

// showReport prints the stored report id with its recomputed summary.
func showReport(ctx context.Context, db *store.DB, id string) error {
	r, err := db.Get(ctx, id)
	if errors.Is(err, store.ErrNoReport) {
		return fmt.Errorf("no stored report %s, list them with history: %w", id, err)
	}
	if err != nil {
		return err
	}

	return report.ResolveReport(ctx, r, report.SummarizeReport(r))
}

func checks() {
	checksCmd := &cobra.Command{
		Use:   "checks",
		Short: "List the policy checks",
		Args:  NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			report.ResolveChecks(analyzer.Checks(analyzer.Settings{}))
		},
	}

	rootCmd.AddCommand(checksCmd)
}
