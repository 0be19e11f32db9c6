package cli

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/report"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/vulnscan"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/runner"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func scan() {
	scanCmd := &cobra.Command{
		Use:   "scan <project-id>",
		Short: "Run the external scanners against a project",
		Long: `Examples:
  # Run every enabled scanner
  $ cicdscan scan 4242

  # Only look for leaked secrets and vulnerable dependencies
  $ cicdscan scan 4242 --kind secret --kind sca

  # Scan the images referenced by .gitlab-ci.yml with a specific docker host
  $ DOCKER_HOST=<DOCKER host> cicdscan scan 4242 -k container`,
		Args: ProjectArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, _ := parseProjectID(args[0])

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			selected, err := selectKinds(cfg, kinds)
			if err != nil {
				return err
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			r, err := runner.NewDockerRunner()
			if err != nil {
				return err
			}
			defer r.Close()

			ctx := context.WithValue(config.Ctx, report.OutputKey, outputFile(cfg))

			log.Printf("%s", config.Green(fmt.Sprintf("Begin %s scan of project %d", strings.Join(selected, ", "), projectID)))
			findings := vulnscan.NewScanner(client, r, cfg).RunAll(ctx, projectID, selected)

			rep := &model.ScanReport{
				ID:              uuid.NewString(),
				ProjectID:       projectID,
				CheckResults:    []model.CheckResult{},
				ScannerFindings: findings,
				GeneratedAt:     time.Now().UTC(),
			}

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

	scanCmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil,
		fmt.Sprintf("scanner kinds to run (%s), defaults to the enabled ones", strings.Join(vulnscan.Kinds(), ", ")))
	scanCmd.Flags().StringVarP(&outfile, "output", "o", "", "output file location")

	rootCmd.AddCommand(scanCmd)
}

// selectKinds validates requested kinds, falling back to the configured ones.
func selectKinds(cfg *config.Config, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return vulnscan.EnabledKinds(cfg), nil
	}

	known := map[string]bool{}
	for _, k := range vulnscan.Kinds() {
		known[k] = true
	}

	var selected []string
	for _, k := range requested {
		k = strings.ToLower(strings.TrimSpace(k))
		if !known[k] {
			return nil, fmt.Errorf("unknown scanner kind %q, expected one of %s", k, strings.Join(vulnscan.Kinds(), ", "))
		}
		selected = append(selected, k)
	}
	return selected, nil
}
