package analyzer

import (
	"context"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
)

var likelySecretFiles = []string{".env", "config", "secret", "setting", "credential", "application"}

func secretFilePriority(p string) int {
	base := strings.ToLower(path.Base(p))
	for i, hint := range likelySecretFiles {
		if strings.Contains(base, hint) {
			return i
		}
	}
	return len(likelySecretFiles)
}

// sourceCandidates picks at most limit blobs with a known extension, files
// whose name hints at configuration first.
func sourceCandidates(snap *model.ProjectSnapshot, limit int) []string {
	var paths []string
	for _, n := range snap.Tree {
		if n.Type != "blob" {
			continue
		}
		if strings.Contains(n.Path, "node_modules/") || strings.HasPrefix(n.Path, "vendor/") {
			continue
		}
		ext := path.Ext(n.Name)
		if n.Name == ".env" || strings.HasPrefix(n.Name, ".env.") {
			ext = ".env"
		}
		if sourceExtensions.Has(ext) {
			paths = append(paths, n.Path)
		}
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return secretFilePriority(paths[i]) < secretFilePriority(paths[j])
	})

	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths
}

func (s Settings) hardcodedSecrets(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) []model.Finding {
	var findings []model.Finding
	for _, p := range sourceCandidates(snap, s.MaxSourceFiles) {
		content, err := client.GetRawFile(ctx, projectID, p)
		if err != nil {
			log.Printf("Failed to read %s, error: %v", p, err)
			continue
		}

		hits := matchProbes(secretContentProbes, strings.Split(content, "\n"))
		if len(hits) == 0 {
			continue
		}
		findings = append(findings, newFinding("Hard-coded secrets", model.StatusDanger,
			fmt.Sprintf("%s contains %s", p, strings.Join(hits, ", ")), p))
	}
	return findings
}

func gitignoreFinding(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) model.Finding {
	if !snap.HasFile(".gitignore") {
		return newFinding(".gitignore", model.StatusWarn, "No .gitignore, secret files may be committed")
	}

	content, err := client.GetRawFile(ctx, projectID, ".gitignore")
	if err != nil {
		return newFinding(".gitignore", model.StatusWarn, ".gitignore could not be read: "+err.Error())
	}

	var covered []string
	for _, glob := range gitignoreSecretGlobs {
		if strings.Contains(content, glob) {
			covered = append(covered, glob)
		}
	}
	if len(covered) == 0 {
		return newFinding(".gitignore", model.StatusWarn, ".gitignore does not exclude secret files")
	}
	return newFinding(".gitignore", model.StatusOK, ".gitignore excludes secret files", covered...)
}

func (s Settings) checkCredentialHygiene(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	var exposed, partial []string
	for _, v := range secretVariables(snap) {
		switch {
		case !v.Masked && !v.Protected:
			exposed = append(exposed, v.Key)
		case !v.Masked || !v.Protected:
			partial = append(partial, v.Key)
		}
	}
	if len(exposed) > 0 {
		findings = append(findings, newFinding("Unprotected secret variables", model.StatusFail,
			fmt.Sprintf("%d secret variables are neither masked nor protected", len(exposed)), exposed...))
	}
	if len(partial) > 0 {
		findings = append(findings, newFinding("Partially protected secret variables", model.StatusWarn,
			fmt.Sprintf("%d secret variables are either unmasked or unprotected", len(partial)), partial...))
	}

	findings = append(findings, s.hardcodedSecrets(ctx, projectID, snap, client)...)
	findings = append(findings, gitignoreFinding(ctx, projectID, snap, client))

	doc, bad := loadCI(snap)
	if bad != nil {
		findings = append(findings, *bad)
	}
	if doc != nil {
		lines := matchingLines([]probe{{"echo of a secret", echoSecretReg}}, doc.AllScripts(), maxListed)
		if len(lines) > 0 {
			findings = append(findings, newFinding("Secrets printed in logs", model.StatusFail,
				"CI scripts echo secret variables into the job log", lines...))
		}
	}

	return newResult("CICD-SEC-6", "Insufficient Credential Hygiene", findings), nil
}
