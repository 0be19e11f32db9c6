package analyzer

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/match"

	"github.com/tidwall/gjson"
)

// manifest lockfiles, any one of them is enough
var lockfiles = map[string][]string{
	"package.json":     {"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "npm-shrinkwrap.json"},
	"go.mod":           {"go.sum"},
	"Pipfile":          {"Pipfile.lock"},
	"pyproject.toml":   {"poetry.lock", "uv.lock", "pdm.lock"},
	"requirements.txt": nil,
}

var manifestNames = []string{"package.json", "requirements.txt", "go.mod", "Pipfile", "pyproject.toml"}

func isManifest(name string) bool {
	for _, m := range manifestNames {
		if name == m {
			return true
		}
	}
	return false
}

// manifests returns manifest paths in tree order, vendored trees excluded.
func manifests(snap *model.ProjectSnapshot) []string {
	var out []string
	for _, n := range snap.Tree {
		if n.Type != "blob" || !isManifest(n.Name) {
			continue
		}
		if strings.Contains(n.Path, "node_modules/") || strings.HasPrefix(n.Path, "vendor/") {
			continue
		}
		out = append(out, n.Path)
	}
	return out
}

func hasLockfile(snap *model.ProjectSnapshot, manifest string) bool {
	locks, ok := lockfiles[path.Base(manifest)]
	if !ok || locks == nil {
		return true
	}
	dir := path.Dir(manifest)
	for _, l := range locks {
		if snap.HasFile(path.Join(dir, l)) {
			return true
		}
	}
	return false
}

func npmDependencies(content string) []string {
	var deps []string
	for _, field := range []string{"dependencies", "devDependencies", "optionalDependencies"} {
		gjson.Get(content, field).ForEach(func(key, _ gjson.Result) bool {
			deps = append(deps, key.String())
			return true
		})
	}
	return deps
}

func pythonRequirements(content string) []string {
	var deps []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if i := strings.IndexAny(line, "=<>!~[; @"); i >= 0 {
			line = line[:i]
		}
		if line != "" {
			deps = append(deps, line)
		}
	}
	return deps
}

// suspiciousDependencies reads the root manifests and matches every declared
// name against the known typosquat lists.
func suspiciousDependencies(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) []model.Finding {
	readers := []struct {
		file     string
		parse    func(string) []string
		classify func(string) match.Suspicion
	}{
		{"package.json", npmDependencies, match.NpmMatch},
		{"requirements.txt", pythonRequirements, match.PyMatch},
	}

	var findings []model.Finding
	for _, r := range readers {
		if !snap.HasFile(r.file) {
			continue
		}

		content, err := client.GetRawFile(ctx, projectID, r.file)
		if err != nil {
			log.Printf("Failed to read %s, error: %v", r.file, err)
			continue
		}

		for _, dep := range r.parse(content) {
			s := r.classify(dep)
			switch s.Types {
			case match.Malware:
				findings = append(findings, newFinding("Malicious dependency", model.StatusFail,
					fmt.Sprintf("%s in %s is a known malicious package impersonating %s", dep, r.file, s.OriginPack), dep))
			case match.Confusion:
				findings = append(findings, newFinding("Suspicious dependency name", model.StatusWarn,
					fmt.Sprintf("%s in %s looks like a typosquat of %s", dep, r.file, s.OriginPack), dep))
			}
		}
	}
	return findings
}

func checkDependencyChain(ctx context.Context, projectID int, snap *model.ProjectSnapshot, client gitlab.Client) (*model.CheckResult, error) {
	findings := []model.Finding{}

	found := manifests(snap)
	if len(found) == 0 {
		findings = append(findings, newFinding("Dependency manifests", model.StatusWarn,
			"No package.json, requirements.txt or go.mod found, dependencies cannot be reviewed"))
	} else {
		findings = append(findings, newFinding("Dependency manifests", model.StatusOK,
			fmt.Sprintf("%d dependency manifests found", len(found)), found...))
	}

	findings = append(findings, newFinding("Public registry usage", model.StatusWarn,
		"Dependencies resolve from public registries by default, use a proxy or private registry"))

	var unlocked []string
	for _, m := range found {
		if !hasLockfile(snap, m) {
			unlocked = append(unlocked, m)
		}
	}
	if len(unlocked) > 0 {
		findings = append(findings, newFinding("Dependency lockfiles", model.StatusWarn,
			fmt.Sprintf("%d manifests have no lockfile, versions are not pinned", len(unlocked)), unlocked...))
	}

	findings = append(findings, suspiciousDependencies(ctx, projectID, snap, client)...)

	doc, bad := loadCI(snap)
	if bad != nil {
		findings = append(findings, *bad)
	}
	if doc != nil {
		var installs []string
		for _, l := range doc.AllScripts() {
			if npmInstallReg.MatchString(l) && !strings.Contains(l, " -g") && !strings.Contains(l, "--global") {
				installs = append(installs, strings.TrimSpace(l))
			}
		}
		if len(installs) > 0 {
			findings = append(findings, newFinding("npm install in CI", model.StatusWarn,
				"npm install may update the lockfile during the build, use npm ci", installs...))
		}
	}

	return newResult("CICD-SEC-3", "Dependency Chain Abuse", findings), nil
}
