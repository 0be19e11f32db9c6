package analyzer

import (
	"context"
	"sort"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
)

// CheckFunc evaluates one policy against the snapshot. The client is only
// used for check-specific extra reads.
type CheckFunc func(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error)

type Check struct {
	ID   string
	Name string
	Run  CheckFunc
}

// Settings tune the thresholds of individual checks.
type Settings struct {
	MinRunnerVersion  string
	TrustedRegistries []string
	MaxSourceFiles    int
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MinRunnerVersion:  cfg.Checks.MinRunnerVersion,
		TrustedRegistries: cfg.Checks.TrustedRegistries,
		MaxSourceFiles:    cfg.Checks.MaxSourceFiles,
	}
}

// Checks returns the ten policy checks in report order.
func Checks(s Settings) []Check {
	if s.MaxSourceFiles <= 0 {
		s.MaxSourceFiles = 10
	}

	return []Check{
		{ID: "CICD-SEC-1", Name: "Insufficient Flow Control Mechanisms", Run: checkFlowControl},
		{ID: "CICD-SEC-2", Name: "Inadequate Identity and Access Management", Run: checkIdentityAccess},
		{ID: "CICD-SEC-3", Name: "Dependency Chain Abuse", Run: checkDependencyChain},
		{ID: "CICD-SEC-4", Name: "Poisoned Pipeline Execution", Run: checkPoisonedPipeline},
		{ID: "CICD-SEC-5", Name: "Insufficient Pipeline-Based Access Controls", Run: checkPipelineAccess},
		{ID: "CICD-SEC-6", Name: "Insufficient Credential Hygiene", Run: s.checkCredentialHygiene},
		{ID: "CICD-SEC-7", Name: "Insecure System Configuration", Run: s.checkSystemConfig},
		{ID: "CICD-SEC-8", Name: "Ungoverned Usage of 3rd Party Services", Run: s.checkThirdParty},
		{ID: "CICD-SEC-9", Name: "Improper Artifact Integrity Validation", Run: checkArtifactIntegrity},
		{ID: "CICD-SEC-10", Name: "Insufficient Logging and Visibility", Run: checkLogging},
	}
}

// severityFor gives policy findings an explicit severity.
func severityFor(status model.Status) model.Severity {
	switch status {
	case model.StatusDanger:
		return model.SeverityCritical
	case model.StatusFail:
		return model.SeverityHigh
	case model.StatusWarn:
		return model.SeverityMedium
	default:
		return ""
	}
}

func newFinding(item string, status model.Status, details string, items ...string) model.Finding {
	f := model.Finding{
		Item:     item,
		Status:   status,
		Severity: severityFor(status),
		Details:  details,
	}

	if len(items) > 0 {
		f.Metadata = &model.Metadata{Items: items}
	}

	return f
}

func newResult(id, name string, findings []model.Finding) *model.CheckResult {
	if findings == nil {
		findings = []model.Finding{}
	}
	sortFindings(findings)
	return &model.CheckResult{ID: id, Name: name, Findings: findings}
}

// sortFindings puts the most severe findings first, keeping probe order otherwise.
func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return config.SeverityMap[string(findings[i].Severity)] > config.SeverityMap[string(findings[j].Severity)]
	})
}

// loadCI parses the snapshot CI file. A nil document means no CI file; an
// unparsable file is reported through the returned finding.
func loadCI(snap *model.ProjectSnapshot) (*CIDocument, *model.Finding) {
	if snap.CIConfig == nil {
		return nil, nil
	}

	doc, err := ParseCI(*snap.CIConfig)
	if err != nil {
		f := newFinding("CI configuration", model.StatusWarn, "CI configuration could not be parsed: "+err.Error())
		return nil, &f
	}

	return doc, nil
}
