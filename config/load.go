package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"k8s.io/client-go/util/homedir"
)

const envPrefix = "CICDSCAN"

// Scanner kinds understood by the orchestrator, in output order.
var ScannerKinds = []string{"sast", "iac", "secret", "sca", "container"}

type Config struct {
	GitLab     GitLab     `mapstructure:"gitlab"`
	Aggregator Aggregator `mapstructure:"aggregator"`
	Scanners   Scanners   `mapstructure:"scanners"`
	Checks     Checks     `mapstructure:"checks"`
	Output     Output     `mapstructure:"output"`
}

type GitLab struct {
	URL            string        `mapstructure:"url" validate:"required,url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxRetries     uint64        `mapstructure:"max_retries" validate:"lte=10"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"`
	PerPage        int           `mapstructure:"per_page" validate:"gte=1,lte=100"`
}

type Aggregator struct {
	// number of most recent pipelines whose jobs are fetched
	JobPipelines int `mapstructure:"job_pipelines" validate:"gte=0,lte=20"`
}

type Scanners struct {
	Enabled      []string          `mapstructure:"enabled" validate:"dive,oneof=sast iac secret sca container"`
	Images       map[string]string `mapstructure:"images"`
	Timeout      time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	CloneTimeout time.Duration     `mapstructure:"clone_timeout" validate:"gt=0"`
	Workdir      string            `mapstructure:"workdir"`
}

type Checks struct {
	MinRunnerVersion  string   `mapstructure:"min_runner_version"`
	TrustedRegistries []string `mapstructure:"trusted_registries"`
	MaxSourceFiles    int      `mapstructure:"max_source_files" validate:"gte=0"`
}

type Output struct {
	File string `mapstructure:"file"`
	DB   string `mapstructure:"db"`
}

// Default returns the configuration used when no file or environment overrides it.
func Default() *Config {
	return &Config{
		GitLab: GitLab{
			URL:            "https://gitlab.com",
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
			RateLimit:      10,
			PerPage:        100,
		},
		Aggregator: Aggregator{JobPipelines: 3},
		Scanners: Scanners{
			Enabled: []string{"sast", "iac", "secret", "sca"},
			Images: map[string]string{
				"sast":      "returntocorp/semgrep:latest",
				"iac":       "bridgecrew/checkov:latest",
				"secret":    "zricethezav/gitleaks:latest",
				"sca":       "aquasec/trivy:latest",
				"container": "aquasec/trivy:latest",
			},
			Timeout:      10 * time.Minute,
			CloneTimeout: 5 * time.Minute,
			Workdir:      os.TempDir(),
		},
		Checks: Checks{
			MinRunnerVersion:  "16.0.0",
			TrustedRegistries: []string{"registry.gitlab.com", "docker.io", "gcr.io"},
			MaxSourceFiles:    10,
		},
		Output: Output{
			File: "output",
			DB:   filepath.Join(HomeDir(), "report.db"),
		},
	}
}

// HomeDir returns the folder holding the config file and report database.
func HomeDir() string {
	return filepath.Join(homedir.HomeDir(), ".cicdscan")
}

// Load reads the configuration from file and CICDSCAN_* environment variables.
// An empty path falls back to $HOME/.cicdscan/config.yaml when it exists.
func Load(v *viper.Viper, path string) (*Config, error) {
	def := Default()

	v.SetDefault("gitlab.url", def.GitLab.URL)
	v.SetDefault("gitlab.request_timeout", def.GitLab.RequestTimeout)
	v.SetDefault("gitlab.max_retries", def.GitLab.MaxRetries)
	v.SetDefault("gitlab.rate_limit", def.GitLab.RateLimit)
	v.SetDefault("gitlab.per_page", def.GitLab.PerPage)
	v.SetDefault("aggregator.job_pipelines", def.Aggregator.JobPipelines)
	v.SetDefault("scanners.enabled", def.Scanners.Enabled)
	v.SetDefault("scanners.images", def.Scanners.Images)
	v.SetDefault("scanners.timeout", def.Scanners.Timeout)
	v.SetDefault("scanners.clone_timeout", def.Scanners.CloneTimeout)
	v.SetDefault("scanners.workdir", def.Scanners.Workdir)
	v.SetDefault("checks.min_runner_version", def.Checks.MinRunnerVersion)
	v.SetDefault("checks.trusted_registries", def.Checks.TrustedRegistries)
	v.SetDefault("checks.max_source_files", def.Checks.MaxSourceFiles)
	v.SetDefault("output.file", def.Output.File)
	v.SetDefault("output.db", def.Output.DB)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// token has no default, Unmarshal only sees it once bound
	if err := v.BindEnv("gitlab.token"); err != nil {
		return nil, err
	}

	if path == "" {
		candidate := filepath.Join(HomeDir(), "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// ScannerEnabled reports whether the kind is switched on.
func (c *Config) ScannerEnabled(kind string) bool {
	for _, k := range c.Scanners.Enabled {
		if strings.EqualFold(k, kind) {
			return true
		}
	}
	return false
}
