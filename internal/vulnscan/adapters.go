package vulnscan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/analyzer"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/runner"

	"github.com/tidwall/gjson"
	"github.com/zricethezav/gitleaks/v8/report"
	"k8s.io/apimachinery/pkg/util/json"
)

// at most this many CI images are scanned by the container kind
const maxImages = 5

// Record is a tool finding before normalization.
type Record struct {
	Identifier  string
	Title       string
	Message     string
	Category    string
	Severity    string
	File        string
	Line        int
	Remediation string
}

// Adapter binds a scanner kind to its tool invocation and report format.
type Adapter struct {
	Kind string
	Name string
	// Targets lists what the tool runs against, one invocation each.
	Targets func(repoDir string) []string
	Command func(target string) []string
	Parse   func(data []byte) ([]Record, error)
}

func mountTarget(string) []string {
	return []string{runner.MountPoint}
}

var adapters = []*Adapter{
	{
		Kind:    "sast",
		Name:    "Semgrep",
		Targets: mountTarget,
		Command: func(target string) []string {
			return []string{"semgrep", "scan", "--config", "auto", "--json", "--quiet", target}
		},
		Parse: parseSemgrep,
	},
	{
		Kind:    "iac",
		Name:    "Checkov",
		Targets: mountTarget,
		Command: func(target string) []string {
			return []string{"-d", target, "-o", "json", "--quiet", "--soft-fail"}
		},
		Parse: parseCheckov,
	},
	{
		Kind:    "secret",
		Name:    "Gitleaks",
		Targets: mountTarget,
		Command: func(target string) []string {
			return []string{"detect", "--no-git", "--no-banner", "--source", target,
				"--report-format", "json", "--report-path", "/dev/stdout", "--exit-code", "0"}
		},
		Parse: parseGitleaks,
	},
	{
		Kind:    "sca",
		Name:    "Trivy",
		Targets: mountTarget,
		Command: func(target string) []string {
			return []string{"fs", "--format", "json", "--quiet", target}
		},
		Parse: parseTrivy,
	},
	{
		Kind:    "container",
		Name:    "Trivy image",
		Targets: ciImages,
		Command: func(target string) []string {
			return []string{"image", "--format", "json", "--quiet", target}
		},
		Parse: parseTrivy,
	},
}

func adapterFor(kind string) (*Adapter, bool) {
	for _, a := range adapters {
		if a.Kind == kind {
			return a, true
		}
	}
	return nil, false
}

// ciImages lists the fixed images referenced by the cloned CI file.
func ciImages(repoDir string) []string {
	data, err := os.ReadFile(filepath.Join(repoDir, ".gitlab-ci.yml"))
	if err != nil {
		return nil
	}

	doc, err := analyzer.ParseCI(string(data))
	if err != nil {
		return nil
	}

	var images []string
	for _, img := range doc.Images() {
		if strings.Contains(img, "$") {
			continue
		}
		images = append(images, img)
		if len(images) == maxImages {
			break
		}
	}
	return images
}

// relative strips the container mount point from tool paths.
func relative(path string) string {
	if path == runner.MountPoint || strings.HasPrefix(path, runner.MountPoint+"/") {
		path = strings.TrimPrefix(path, runner.MountPoint)
	}
	return strings.TrimPrefix(path, "/")
}

func checkEmpty(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyReport
	}
	return nil
}

func semgrepSeverity(s string) string {
	switch strings.ToUpper(s) {
	case "ERROR":
		return "high"
	case "WARNING":
		return "medium"
	case "INFO":
		return "info"
	default:
		return strings.ToLower(s)
	}
}

func parseSemgrep(data []byte) ([]Record, error) {
	if err := checkEmpty(data); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid semgrep report")
	}

	records := []Record{}
	gjson.GetBytes(data, "results").ForEach(func(_, r gjson.Result) bool {
		records = append(records, Record{
			Identifier:  r.Get("check_id").String(),
			Title:       r.Get("check_id").String(),
			Message:     r.Get("extra.message").String(),
			Category:    r.Get("extra.metadata.category").String(),
			Severity:    semgrepSeverity(r.Get("extra.severity").String()),
			File:        relative(r.Get("path").String()),
			Line:        int(r.Get("start.line").Int()),
			Remediation: r.Get("extra.fix").String(),
		})
		return true
	})

	return records, nil
}

// parseCheckov accepts both the single framework object and the array
// checkov prints when several frameworks ran.
func parseCheckov(data []byte) ([]Record, error) {
	if err := checkEmpty(data); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid checkov report")
	}

	var reports []gjson.Result
	root := gjson.ParseBytes(data)
	if root.IsArray() {
		reports = root.Array()
	} else {
		reports = []gjson.Result{root}
	}

	records := []Record{}
	for _, rep := range reports {
		category := rep.Get("check_type").String()
		rep.Get("results.failed_checks").ForEach(func(_, c gjson.Result) bool {
			records = append(records, Record{
				Identifier:  c.Get("check_id").String(),
				Title:       c.Get("check_name").String(),
				Message:     c.Get("check_name").String(),
				Category:    category,
				Severity:    c.Get("severity").String(),
				File:        relative(c.Get("file_path").String()),
				Line:        int(c.Get("file_line_range.0").Int()),
				Remediation: c.Get("guideline").String(),
			})
			return true
		})
	}

	return records, nil
}

func parseGitleaks(data []byte) ([]Record, error) {
	if err := checkEmpty(data); err != nil {
		return nil, err
	}

	var leaks []report.Finding
	if err := json.Unmarshal(data, &leaks); err != nil {
		return nil, fmt.Errorf("invalid gitleaks report: %w", err)
	}

	return gitleaksRecords(leaks), nil
}

// gitleaksRecords rates every leaked secret critical.
func gitleaksRecords(leaks []report.Finding) []Record {
	records := make([]Record, 0, len(leaks))
	for _, l := range leaks {
		title := l.Description
		if title == "" {
			title = l.RuleID
		}
		file := relative(l.File)
		records = append(records, Record{
			Identifier:  l.RuleID,
			Title:       title,
			Message:     fmt.Sprintf("%s detected in %s", l.RuleID, file),
			Category:    "secret",
			Severity:    string(model.SeverityCritical),
			File:        file,
			Line:        l.StartLine,
			Remediation: "Rotate the secret and remove it from the repository history",
		})
	}
	return records
}

type trivyReport struct {
	Results []struct {
		Target          string `json:"Target"`
		Type            string `json:"Type"`
		Vulnerabilities []struct {
			VulnerabilityID  string `json:"VulnerabilityID"`
			PkgName          string `json:"PkgName"`
			InstalledVersion string `json:"InstalledVersion"`
			FixedVersion     string `json:"FixedVersion"`
			Severity         string `json:"Severity"`
			Title            string `json:"Title"`
		} `json:"Vulnerabilities"`
	} `json:"Results"`
}

func parseTrivy(data []byte) ([]Record, error) {
	if err := checkEmpty(data); err != nil {
		return nil, err
	}

	var rep trivyReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("invalid trivy report: %w", err)
	}

	records := []Record{}
	for _, res := range rep.Results {
		for _, v := range res.Vulnerabilities {
			title := v.Title
			if title == "" {
				title = v.VulnerabilityID
			}

			remediation := ""
			if v.FixedVersion != "" {
				remediation = fmt.Sprintf("Upgrade %s to %s", v.PkgName, v.FixedVersion)
			}

			records = append(records, Record{
				Identifier:  v.VulnerabilityID,
				Title:       title,
				Message:     fmt.Sprintf("%s %s: %s", v.PkgName, v.InstalledVersion, title),
				Category:    res.Type,
				Severity:    v.Severity,
				File:        relative(res.Target),
				Remediation: remediation,
			})
		}
	}

	return records, nil
}

// Normalize maps tool records onto findings through the severity table.
func Normalize(kind string, records []Record) []model.Finding {
	findings := make([]model.Finding, 0, len(records))
	for _, r := range records {
		severity := model.NormalizeSeverity(r.Severity)

		var location *model.Location
		if r.File != "" {
			location = &model.Location{File: r.File, Line: r.Line}
		}

		findings = append(findings, model.Finding{
			Item:     r.Title,
			Status:   model.StatusForSeverity(severity),
			Severity: severity,
			Details:  r.Message,
			Metadata: &model.Metadata{
				Scanner: kind,
				Vulnerability: &model.Vulnerability{
					Identifier:  r.Identifier,
					Category:    r.Category,
					Location:    location,
					Remediation: r.Remediation,
				},
			},
		})
	}
	return findings
}
