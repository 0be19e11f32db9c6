package analyzer

import (
	"context"
	"fmt"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
)

const (
	successWindow    = 3
	minSuccessRate   = 0.7
	successfulStatus = "success"
)

func checkPipelineAccess(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	if runners := privilegedRunners(snap); len(runners) > 0 {
		findings = append(findings, newFinding("Privileged runners", model.StatusFail,
			fmt.Sprintf("%d runners run privileged workloads", len(runners)), runners...))
	}

	var untagged []string
	for _, r := range snap.Runners {
		if r.IsShared && (len(r.TagList) == 0 || r.RunUntagged) {
			untagged = append(untagged, runnerName(r))
		}
	}
	if len(untagged) > 0 {
		findings = append(findings, newFinding("Untagged shared runners", model.StatusWarn,
			fmt.Sprintf("%d shared runners pick up untagged jobs", len(untagged)), untagged...))
	}

	findings = append(findings, secretScopeFinding(snap))

	if prod, dev := environmentSeparation(snap); prod && dev {
		findings = append(findings, newFinding("Environment separation", model.StatusOK,
			"Production and non-production environments are separated"))
	} else {
		findings = append(findings, newFinding("Environment separation", model.StatusWarn,
			"No separate production and non-production environments"))
	}

	doc, bad := loadCI(snap)
	if bad != nil {
		findings = append(findings, *bad)
	}
	if doc != nil {
		lines := matchingLines([]probe{{"outbound call", outboundReg}}, doc.AllScripts(), maxListed)
		if len(lines) > 0 {
			findings = append(findings, newFinding("Outbound network calls", model.StatusWarn,
				fmt.Sprintf("%d script lines reach external hosts", len(lines)), lines...))
		}

		if !resourceLimitReg.MatchString(doc.Raw) {
			findings = append(findings, newFinding("Resource limits", model.StatusWarn,
				"No CPU or memory limits are set for CI jobs"))
		}
	}

	if f, ok := successRateFinding(snap.Pipelines); ok {
		findings = append(findings, f)
	}

	return newResult("CICD-SEC-5", "Insufficient Pipeline-Based Access Controls", findings), nil
}

func secretScopeFinding(snap *model.ProjectSnapshot) model.Finding {
	secrets := secretVariables(snap)
	if len(secrets) == 0 {
		return newFinding("Secret scopes", model.StatusInfo, "No secret CI/CD variables defined")
	}

	var dev, prod bool
	for _, v := range secrets {
		if globalScope(v.EnvironmentScope) {
			continue
		}
		if prodScopeReg.MatchString(v.EnvironmentScope) {
			prod = true
		} else if devScopeReg.MatchString(v.EnvironmentScope) {
			dev = true
		}
	}

	if dev && prod {
		return newFinding("Secret scopes", model.StatusOK,
			"Secrets are scoped separately to development and production")
	}
	return newFinding("Secret scopes", model.StatusWarn,
		"Secrets are not separated between development and production scopes")
}

// successRateFinding looks at the newest pipelines, which the client returns first.
func successRateFinding(pipelines []gitlab.Pipeline) (model.Finding, bool) {
	if len(pipelines) == 0 {
		return model.Finding{}, false
	}

	recent := pipelines
	if len(recent) > successWindow {
		recent = recent[:successWindow]
	}

	succeeded := 0
	for _, p := range recent {
		if p.Status == successfulStatus {
			succeeded++
		}
	}

	rate := float64(succeeded) / float64(len(recent))
	details := fmt.Sprintf("%d of the last %d pipelines succeeded (%.0f%%)", succeeded, len(recent), rate*100)
	if rate < minSuccessRate {
		return newFinding("Pipeline success rate", model.StatusWarn, details), true
	}
	return newFinding("Pipeline success rate", model.StatusOK, details), true
}
