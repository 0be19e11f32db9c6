package analyzer

import (
	"context"
	"fmt"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
)

const (
	maintainerAccess = 40
	maxMaintainers   = 2
)

func checkIdentityAccess(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	var privileged, shared, neverLoggedIn, blocked, noExpiry []string

	for _, m := range snap.Members {
		if m.AccessLevel >= maintainerAccess {
			privileged = append(privileged, m.Username)
			if m.ExpiresAt == "" {
				noExpiry = append(noExpiry, m.Username)
			}
		}

		if serviceAccountReg.MatchString(m.Username) {
			shared = append(shared, m.Username)
		}

		if m.State == "blocked" {
			blocked = append(blocked, m.Username)
		}

		lastLogin := m.LastSignInAt
		user, ok := snap.UserByID(m.ID)
		if ok && user.Bot {
			continue
		}
		if lastLogin == nil && ok {
			lastLogin = user.LastSignInAt
		}
		if lastLogin == nil {
			neverLoggedIn = append(neverLoggedIn, m.Username)
		}
	}

	if len(privileged) > maxMaintainers {
		findings = append(findings, newFinding("Maintainer and owner count", model.StatusWarn,
			fmt.Sprintf("%d members have Maintainer or Owner access, more than %d", len(privileged), maxMaintainers),
			privileged...))
	} else {
		findings = append(findings, newFinding("Maintainer and owner count", model.StatusOK,
			fmt.Sprintf("%d members have Maintainer or Owner access", len(privileged))))
	}

	if len(shared) > 0 {
		findings = append(findings, newFinding("Shared or service accounts", model.StatusWarn,
			fmt.Sprintf("%d members look like shared or service accounts", len(shared)), shared...))
	}

	if len(neverLoggedIn) > 0 {
		findings = append(findings, newFinding("Inactive members", model.StatusWarn,
			fmt.Sprintf("%d members have no recorded sign-in", len(neverLoggedIn)), neverLoggedIn...))
	}

	if len(blocked) > 0 {
		findings = append(findings, newFinding("Blocked members", model.StatusInfo,
			fmt.Sprintf("%d blocked users are still project members", len(blocked)), blocked...))
	}

	if len(noExpiry) > 0 {
		findings = append(findings, newFinding("Privileged access expiry", model.StatusInfo,
			fmt.Sprintf("%d Maintainer or Owner memberships never expire", len(noExpiry)), noExpiry...))
	}

	return newResult("CICD-SEC-2", "Inadequate Identity and Access Management", findings), nil
}
