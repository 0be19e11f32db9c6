package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
)

func logDestination(raw string) string {
	raw = strings.ToLower(raw)
	for _, d := range logDestinations {
		if strings.Contains(raw, d) {
			return d
		}
	}
	return ""
}

func checkLogging(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	doc, bad := loadCI(snap)
	if bad != nil {
		findings = append(findings, *bad)
	}
	if doc != nil {
		if d := logDestination(doc.Raw); d != "" {
			findings = append(findings, newFinding("Log destination", model.StatusOK,
				"CI configuration ships logs to "+d))
		} else {
			findings = append(findings, newFinding("Log destination", model.StatusWarn,
				"CI configuration references no log destination"))
		}

		if hits := matchProbes(debugTraceProbes, doc.ProbeScripts()); len(hits) > 0 {
			findings = append(findings, newFinding("Debug tracing", model.StatusWarn,
				"Job logs may expose variables: "+strings.Join(hits, ", ")))
		}
	}

	var hooks []string
	for _, h := range snap.Hooks {
		if h.PipelineEvents {
			hooks = append(hooks, h.URL)
		}
	}
	if len(hooks) > 0 {
		findings = append(findings, newFinding("Pipeline event webhooks", model.StatusOK,
			fmt.Sprintf("%d webhooks receive pipeline events", len(hooks)), hooks...))
	} else {
		findings = append(findings, newFinding("Pipeline event webhooks", model.StatusWarn,
			"No webhook receives pipeline events"))
	}

	if len(snap.Environments) > 0 {
		findings = append(findings, newFinding("Deployment tracking", model.StatusInfo,
			fmt.Sprintf("%d deployments recorded across %d environments", len(snap.Deployments), len(snap.Environments))))
	}

	return newResult("CICD-SEC-10", "Insufficient Logging and Visibility", findings), nil
}
