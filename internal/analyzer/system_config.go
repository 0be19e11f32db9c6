package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"

	"github.com/hashicorp/go-version"
)

// outdatedRunners lists runners reporting a version below min.
func outdatedRunners(runners []gitlab.Runner, min string) []string {
	floor, err := version.NewVersion(min)
	if err != nil {
		return nil
	}

	var out []string
	for _, r := range runners {
		if r.Version == "" {
			continue
		}
		v, err := version.NewVersion(r.Version)
		if err != nil {
			continue
		}
		if v.LessThan(floor) {
			out = append(out, fmt.Sprintf("%s (%s)", runnerName(r), r.Version))
		}
	}
	return out
}

func sensitiveMounts(lines []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range lines {
		for _, m := range mountReg.FindAllStringSubmatch(l, -1) {
			host := m[1]
			if host == "" {
				host = m[2]
			}
			host = strings.TrimRight(host, "/")
			if host == "" {
				host = "/"
			}
			if checkMountPath(host) && !seen[host] {
				seen[host] = true
				out = append(out, host)
			}
		}
	}
	return out
}

func (s Settings) checkSystemConfig(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	doc, bad := loadCI(snap)
	if bad != nil {
		findings = append(findings, *bad)
	}
	if doc != nil {
		if images := floatingImages(doc); len(images) > 0 {
			findings = append(findings, newFinding("Floating image tags", model.StatusWarn,
				fmt.Sprintf("%d images use latest or no tag", len(images)), images...))
		}

		raw := strings.Split(doc.Raw, "\n")
		if hits := matchProbes(privilegedProbes, raw); len(hits) > 0 {
			findings = append(findings, newFinding("Privileged containers", model.StatusWarn,
				"CI jobs run privileged containers: "+strings.Join(hits, ", "),
				matchingLines(privilegedProbes, raw, maxListed)...))
		}

		if mounts := sensitiveMounts(raw); len(mounts) > 0 {
			findings = append(findings, newFinding("Sensitive volume mounts", model.StatusWarn,
				"CI jobs mount sensitive host paths", mounts...))
		}

		if hits := matchProbes(tlsOffProbes, doc.ProbeScripts()); len(hits) > 0 {
			findings = append(findings, newFinding("TLS verification", model.StatusWarn,
				"TLS is disabled: "+strings.Join(hits, ", "),
				matchingLines(tlsOffProbes, doc.ProbeScripts(), maxListed)...))
		}
	}

	if old := outdatedRunners(snap.Runners, s.MinRunnerVersion); len(old) > 0 {
		findings = append(findings, newFinding("Outdated runners", model.StatusWarn,
			fmt.Sprintf("%d runners are older than %s", len(old), s.MinRunnerVersion), old...))
	}

	if len(findings) == 0 {
		findings = append(findings, newFinding("System configuration", model.StatusOK,
			"No insecure system configuration found"))
	}

	return newResult("CICD-SEC-7", "Insecure System Configuration", findings), nil
}
