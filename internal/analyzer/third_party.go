package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"

	"k8s.io/apimachinery/pkg/util/sets"
)

func (s Settings) checkThirdParty(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	var noSSL, plain []string
	for _, h := range snap.Hooks {
		if !h.EnableSSLVerification {
			noSSL = append(noSSL, h.URL)
		}
		if strings.HasPrefix(strings.ToLower(h.URL), "http://") {
			plain = append(plain, h.URL)
		}
	}
	if len(noSSL) > 0 {
		findings = append(findings, newFinding("Webhook SSL verification", model.StatusWarn,
			fmt.Sprintf("%d webhooks skip SSL verification", len(noSSL)), noSSL...))
	}
	if len(plain) > 0 {
		findings = append(findings, newFinding("Plain HTTP webhooks", model.StatusWarn,
			fmt.Sprintf("%d webhooks send project data over plain HTTP", len(plain)), plain...))
	}

	var writable []string
	for _, k := range snap.DeployKeys {
		if k.CanPush {
			writable = append(writable, k.Title)
		}
	}
	if len(writable) > 0 {
		findings = append(findings, newFinding("Deploy keys with write access", model.StatusWarn,
			fmt.Sprintf("%d deploy keys can push to the repository", len(writable)), writable...))
	}

	doc, bad := loadCI(snap)
	if bad != nil {
		findings = append(findings, *bad)
	}
	if doc != nil {
		var shared []string
		for _, inc := range doc.Includes {
			if inc.Kind == "project" || inc.Kind == "template" || inc.Kind == "component" {
				shared = append(shared, inc.Kind+": "+inc.Value)
			}
		}
		if len(shared) > 0 {
			findings = append(findings, newFinding("Shared CI includes", model.StatusInfo,
				fmt.Sprintf("%d CI includes come from other projects or templates", len(shared)), shared...))
		}

		trusted := sets.NewString(s.TrustedRegistries...)
		var untrusted []string
		for _, img := range doc.Images() {
			if strings.Contains(img, "$") {
				continue
			}
			if !trusted.Has(imageRegistry(img)) {
				untrusted = append(untrusted, img)
			}
		}
		if len(untrusted) > 0 {
			findings = append(findings, newFinding("Untrusted registries", model.StatusInfo,
				fmt.Sprintf("%d images come from registries outside the trusted list", len(untrusted)), untrusted...))
		}
	}

	if len(findings) == 0 {
		findings = append(findings, newFinding("Third party services", model.StatusOK,
			"No ungoverned third party usage found"))
	}

	return newResult("CICD-SEC-8", "Ungoverned Usage of 3rd Party Services", findings), nil
}
