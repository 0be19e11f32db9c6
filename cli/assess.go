package cli

import (
	"context"
	"log"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/report"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/runner"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/store"

	"github.com/spf13/cobra"
)

func assess() {
	assessCmd := &cobra.Command{
		Use:   "assess <project-id>",
		Short: "Run every policy check and scanner against a project",
		Long: `Examples:
  # Assess a project on gitlab.com
  $ CICDSCAN_GITLAB_TOKEN=<token> cicdscan assess 4242

  # Assess a project on a self-managed instance and write the report to a file
  $ CICDSCAN_GITLAB_URL=https://gitlab.example.com cicdscan assess 17 -o reports/app.json

  # Only run the policy checks
  $ cicdscan assess 17 --checks-only`,
		Args: ProjectArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, _ := parseProjectID(args[0])

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if checksOnly {
				cfg.Scanners.Enabled = nil
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			var sink store.Sink
			if !noStore && cfg.Output.DB != "" {
				db, err := store.Open(cfg.Output.DB)
				if err != nil {
					log.Printf("failed to open report database, error: %v", err)
				} else {
					defer db.Close()
					sink = db
				}
			}

			r, err := runner.NewDockerRunner()
			if err != nil {
				log.Printf("Cannot initialize docker environment, scanners will fail, error: %v", err)
			} else {
				defer r.Close()
			}

			ctx := context.WithValue(config.Ctx, report.OutputKey, outputFile(cfg))

			var cr runner.ContainerRunner = unavailableRunner{err: err}
			if r != nil {
				cr = r
			}

			assessor := internal.NewAssessor(client, cr, cfg, sink)
			rep := assessor.Assess(ctx, projectID)

			err = report.ResolveReport(ctx, rep, report.SummarizeReport(rep))
			if err != nil {
				log.Printf("Report error %v", err)
			}

			_, err = report.ReportToJson(ctx, rep)
			if err != nil {
				log.Printf("Saving error %v", err)
			}

			return nil
		},
	}

	assessCmd.Flags().StringVarP(&outfile, "output", "o", "", "output file location")
	assessCmd.Flags().BoolVar(&checksOnly, "checks-only", false, "skip the external scanners")
	assessCmd.Flags().BoolVar(&noStore, "no-store", false, "skip saving the report in the history database")

	rootCmd.AddCommand(assessCmd)
}

// outputFile prefers the flag over the configured location.
func outputFile(cfg *config.Config) string {
	if outfile != "" {
		return outfile
	}
	return cfg.Output.File
}

// unavailableRunner reports the Docker setup error from every scanner.
type unavailableRunner struct {
	err error
}

func (u unavailableRunner) Run(ctx context.Context, image string, command []string, mountDir string) ([]byte, error) {
	return nil, u.err
}
