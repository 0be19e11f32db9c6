package cli

import (
	"fmt"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const versions = "cicdscan v0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "cicdscan [OPTIONS]",
		Short: "GitLab CI/CD pipeline security assessment",
		Long: `cicdscan evaluates a GitLab project against the OWASP Top 10 CI/CD security risks
               and runs SAST, IaC, secret, dependency and container scanners on its repository`,
		SilenceUsage: true,
	}

	cfgFile    string
	outfile    string
	noStore    bool
	checksOnly bool
	kinds      []string
)

func Execute() error {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and quit",
		Args:  NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(versions)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default $HOME/.cicdscan/config.yaml)")

	assess()
	scan()
	checks()
	history()

	rootCmd.AddCommand(versionCmd)
	return rootCmd.Execute()
}

// loadConfig reads the config file and CICDSCAN_* environment variables.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.New(), cfgFile)
}

func newClient(cfg *config.Config) (*gitlab.RESTClient, error) {
	return gitlab.NewClient(gitlab.Options{
		BaseURL:        cfg.GitLab.URL,
		Token:          cfg.GitLab.Token,
		RequestTimeout: cfg.GitLab.RequestTimeout,
		MaxRetries:     cfg.GitLab.MaxRetries,
		RateLimit:      cfg.GitLab.RateLimit,
		PerPage:        cfg.GitLab.PerPage,
	})
}
