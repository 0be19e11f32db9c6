package analyzer

import (
	"context"
	"fmt"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
)

const maxListed = 10

func secretVariables(snap *model.ProjectSnapshot) []gitlab.Variable {
	var out []gitlab.Variable
	for _, v := range snap.Variables {
		if secretVariableReg.MatchString(v.Key) {
			out = append(out, v)
		}
	}
	return out
}

func globalScope(scope string) bool {
	return scope == "" || scope == "*"
}

func privilegedRunners(snap *model.ProjectSnapshot) []string {
	var out []string
	for _, r := range snap.Runners {
		if privilegedRunnerReg.MatchString(r.Description) || privilegedRunnerReg.MatchString(r.Name) ||
			anyMatch(privilegedRunnerReg, r.TagList) {
			out = append(out, runnerName(r))
		}
	}
	return out
}

func runnerName(r gitlab.Runner) string {
	if r.Description != "" {
		return r.Description
	}
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("runner #%d", r.ID)
}

// environmentSeparation reports whether both production and non-production
// environments exist.
func environmentSeparation(snap *model.ProjectSnapshot) (prod, dev bool) {
	for _, e := range snap.Environments {
		name := e.Name + " " + e.Tier
		switch {
		case prodScopeReg.MatchString(name):
			prod = true
		case devScopeReg.MatchString(name):
			dev = true
		}
	}
	return prod, dev
}

func floatingImages(doc *CIDocument) []string {
	var out []string
	for _, img := range doc.Images() {
		if latestImageReg.MatchString(img) || imageTagless(img) {
			out = append(out, img)
		}
	}
	return out
}

func limited(items []string) []string {
	if len(items) > maxListed {
		return items[:maxListed]
	}
	return items
}

func checkPoisonedPipeline(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	// only the default branch's CI file is read, so every unprotected branch
	// is assumed to carry a copy of it
	if snap.CIConfig != nil {
		var unprotected []string
		for _, b := range snap.Branches {
			if !b.Protected {
				unprotected = append(unprotected, b.Name)
			}
		}
		if len(unprotected) > 0 {
			findings = append(findings, newFinding("Unprotected branches with CI configuration", model.StatusWarn,
				fmt.Sprintf("%d unprotected branches can change and run the CI configuration, assuming they inherit it from the default branch", len(unprotected)),
				limited(unprotected)...))
		}
	}

	if snap.Project != nil && snap.Project.Visibility == "public" {
		findings = append(findings, newFinding("Project visibility", model.StatusWarn,
			"Project is public, anyone can read the pipeline definition and logs"))
	}

	var globals []string
	for _, v := range secretVariables(snap) {
		if globalScope(v.EnvironmentScope) {
			globals = append(globals, v.Key)
		}
	}
	if len(globals) > 0 {
		findings = append(findings, newFinding("Globally scoped secrets", model.StatusWarn,
			fmt.Sprintf("%d secret variables are available to every environment", len(globals)), globals...))
	}

	if prod, dev := environmentSeparation(snap); prod && dev {
		findings = append(findings, newFinding("Environment separation", model.StatusInfo,
			"Production and non-production environments are separated"))
	} else {
		findings = append(findings, newFinding("Environment separation", model.StatusInfo,
			"No separate production and non-production environments"))
	}

	if runners := privilegedRunners(snap); len(runners) > 0 {
		findings = append(findings, newFinding("Privileged runners", model.StatusWarn,
			fmt.Sprintf("%d runners look privileged", len(runners)), runners...))
	}

	doc, bad := loadCI(snap)
	if bad != nil {
		findings = append(findings, *bad)
	}
	if doc == nil {
		return newResult("CICD-SEC-4", "Poisoned Pipeline Execution", findings), nil
	}

	var external []string
	for _, inc := range doc.Includes {
		if inc.Kind == "remote" {
			external = append(external, inc.Value)
		}
	}
	if len(external) > 0 {
		findings = append(findings, newFinding("External includes", model.StatusWarn,
			fmt.Sprintf("%d CI includes are loaded from external URLs", len(external)), external...))
	}

	if lines := matchingLines(downloadExecProbes, doc.AllScripts(), maxListed); len(lines) > 0 {
		findings = append(findings, newFinding("Download and execute", model.StatusFail,
			"CI scripts execute code downloaded at run time: "+joinProbes(downloadExecProbes, lines), lines...))
	}

	if images := floatingImages(doc); len(images) > 0 {
		findings = append(findings, newFinding("Floating image tags", model.StatusWarn,
			fmt.Sprintf("%d images use latest or no tag", len(images)), images...))
	}

	return newResult("CICD-SEC-4", "Poisoned Pipeline Execution", findings), nil
}
