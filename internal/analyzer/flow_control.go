package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"

	"k8s.io/apimachinery/pkg/util/sets"
)

func checkFlowControl(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	protected := sets.NewString()
	for _, pb := range snap.ProtectedBranches {
		protected.Insert(pb.Name)
	}

	if protected.HasAny(protectedBranchNames.List()...) {
		findings = append(findings, newFinding("main/master protection", model.StatusOK,
			"Default branch is protected"))
	} else {
		findings = append(findings, newFinding("main/master protection", model.StatusFail,
			"Neither main nor master is a protected branch"))
	}

	var forcePush []string
	for _, pb := range snap.ProtectedBranches {
		if protectedBranchNames.Has(pb.Name) && pb.AllowForcePush {
			forcePush = append(forcePush, pb.Name)
		}
	}
	if len(forcePush) > 0 {
		findings = append(findings, newFinding("Force push", model.StatusWarn,
			"Force push is allowed on "+strings.Join(forcePush, ", "), forcePush...))
	}

	var unprotected []string
	for _, b := range snap.Branches {
		if sensitiveBranchReg.MatchString(b.Name) && !b.Protected && !protected.Has(b.Name) {
			unprotected = append(unprotected, b.Name)
		}
	}
	if len(unprotected) > 0 {
		findings = append(findings, newFinding("Sensitive branch protection", model.StatusFail,
			fmt.Sprintf("%d production or release branches are not protected", len(unprotected)), unprotected...))
	}

	var unapproved []string
	for _, mr := range snap.MergedMergeRequests {
		if mr.ApprovalsBeforeMerge == 0 {
			unapproved = append(unapproved, fmt.Sprintf("!%d", mr.IID))
		}
	}
	if len(unapproved) > 0 {
		findings = append(findings, newFinding("Merge request approvals", model.StatusWarn,
			fmt.Sprintf("%d merged merge requests required no approval", len(unapproved)), unapproved...))
	}

	var pushed []string
	for _, p := range snap.Pipelines {
		if p.Source == "push" && p.Status == "success" {
			pushed = append(pushed, fmt.Sprintf("#%d", p.ID))
		}
	}
	if len(pushed) > 0 {
		findings = append(findings, newFinding("Push triggered pipelines", model.StatusWarn,
			fmt.Sprintf("%d pipelines triggered by a direct push succeeded without review", len(pushed)), pushed...))
	}

	doc, bad := loadCI(snap)
	switch {
	case bad != nil:
		findings = append(findings, *bad)
	case doc == nil:
		findings = append(findings, newFinding("Auto deploy to production", model.StatusInfo,
			"No CI configuration found"))
	default:
		findings = append(findings, autoDeployFinding(DetectAutoDeploy(doc)))
	}

	return newResult("CICD-SEC-1", "Insufficient Flow Control Mechanisms", findings), nil
}
