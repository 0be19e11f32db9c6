package vulnscan

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const semgrepOutput = `{
  "results": [
    {
      "check_id": "python.lang.security.audit.eval-detected",
      "path": "/src/app/main.py",
      "start": {"line": 12, "col": 5},
      "extra": {
        "message": "Detected the use of eval()",
        "severity": "ERROR",
        "metadata": {"category": "security"},
        "fix": "ast.literal_eval(x)"
      }
    },
    {
      "check_id": "generic.style.todo",
      "path": "/src/README.md",
      "start": {"line": 1},
      "extra": {"message": "todo", "severity": "INFO"}
    }
  ],
  "errors": []
}`

const checkovObject = `{
  "check_type": "terraform",
  "results": {
    "failed_checks": [
      {
        "check_id": "CKV_AWS_20",
        "check_name": "S3 Bucket has an ACL defined which allows public READ access.",
        "file_path": "/main.tf",
        "file_line_range": [3, 9],
        "severity": null,
        "guideline": "https://docs.prismacloud.io/CKV_AWS_20"
      }
    ]
  }
}`

const checkovArray = `[
  {"check_type": "terraform", "results": {"failed_checks": [{"check_id": "CKV_AWS_1", "check_name": "a", "file_path": "/a.tf", "file_line_range": [1, 2], "severity": "HIGH"}]}},
  {"check_type": "dockerfile", "results": {"failed_checks": [{"check_id": "CKV_DOCKER_2", "check_name": "b", "file_path": "/Dockerfile", "file_line_range": [4, 4]}]}}
]`

const trivyOutput = `{
  "SchemaVersion": 2,
  "Results": [
    {
      "Target": "package-lock.json",
      "Type": "npm",
      "Vulnerabilities": [
        {"VulnerabilityID": "CVE-2021-23337", "PkgName": "lodash", "InstalledVersion": "4.17.20", "FixedVersion": "4.17.21", "Severity": "HIGH", "Title": "Command injection"},
        {"VulnerabilityID": "CVE-2020-0001", "PkgName": "left-pad", "InstalledVersion": "1.0.0", "Severity": "UNKNOWN"}
      ]
    }
  ]
}`

func TestParseGitleaks(t *testing.T) {
	records, err := parseGitleaks([]byte(`[{"RuleID": "aws-key", "File": "a.env", "StartLine": 3}]`))
	require.NoError(t, err)

	findings := Normalize("secret", records)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, model.SeverityCritical, f.Severity)
	assert.Equal(t, model.StatusDanger, f.Status)
	assert.Equal(t, "aws-key", f.Item)
	assert.Equal(t, "secret", f.Metadata.Scanner)
	assert.Equal(t, &model.Location{File: "a.env", Line: 3}, f.Metadata.Vulnerability.Location)
}

func TestParseTrivyEmptyResults(t *testing.T) {
	records, err := parseTrivy([]byte(`{"Results": []}`))
	require.NoError(t, err)

	findings := Normalize("sca", records)
	assert.Equal(t, []model.Finding{}, findings)
}

func TestParseTrivy(t *testing.T) {
	records, err := parseTrivy([]byte(trivyOutput))
	require.NoError(t, err)

	want := []Record{
		{
			Identifier:  "CVE-2021-23337",
			Title:       "Command injection",
			Message:     "lodash 4.17.20: Command injection",
			Category:    "npm",
			Severity:    "HIGH",
			File:        "package-lock.json",
			Remediation: "Upgrade lodash to 4.17.21",
		},
		{
			Identifier: "CVE-2020-0001",
			Title:      "CVE-2020-0001",
			Message:    "left-pad 1.0.0: CVE-2020-0001",
			Category:   "npm",
			Severity:   "UNKNOWN",
			File:       "package-lock.json",
		},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("parseTrivy() got = %+v, want %+v", records, want)
	}

	findings := Normalize("sca", records)
	assert.Equal(t, model.StatusWarn, findings[0].Status)
	assert.Equal(t, model.SeverityUnknown, findings[1].Severity)
	assert.Equal(t, model.StatusInfo, findings[1].Status)
}

func TestParseSemgrep(t *testing.T) {
	records, err := parseSemgrep([]byte(semgrepOutput))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		Identifier:  "python.lang.security.audit.eval-detected",
		Title:       "python.lang.security.audit.eval-detected",
		Message:     "Detected the use of eval()",
		Category:    "security",
		Severity:    "high",
		File:        "app/main.py",
		Line:        12,
		Remediation: "ast.literal_eval(x)",
	}, records[0])
	assert.Equal(t, "info", records[1].Severity)

	findings := Normalize("sast", records)
	assert.Equal(t, model.StatusWarn, findings[0].Status)
	assert.Equal(t, model.StatusLow, findings[1].Status)
}

func TestParseCheckov(t *testing.T) {
	records, err := parseCheckov([]byte(checkovObject))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CKV_AWS_20", records[0].Identifier)
	assert.Equal(t, "main.tf", records[0].File)
	assert.Equal(t, 3, records[0].Line)
	assert.Equal(t, "terraform", records[0].Category)

	findings := Normalize("iac", records)
	assert.Equal(t, model.SeverityUnknown, findings[0].Severity)
	assert.Equal(t, model.StatusInfo, findings[0].Status)

	records, err = parseCheckov([]byte(checkovArray))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "dockerfile", records[1].Category)
	assert.Equal(t, model.StatusWarn, Normalize("iac", records)[0].Status)

	records, err = parseCheckov([]byte(`{"passed": 0, "failed": 0}`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseErrors(t *testing.T) {
	parsers := map[string]func([]byte) ([]Record, error){
		"semgrep":  parseSemgrep,
		"checkov":  parseCheckov,
		"gitleaks": parseGitleaks,
		"trivy":    parseTrivy,
	}
	for name, parse := range parsers {
		t.Run(name, func(t *testing.T) {
			_, err := parse([]byte("  \n"))
			assert.True(t, errors.Is(err, ErrEmptyReport))

			_, err = parse([]byte("not json"))
			assert.Error(t, err)
		})
	}
}

func TestSemgrepSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ERROR", want: "high"},
		{in: "warning", want: "medium"},
		{in: "INFO", want: "info"},
		{in: "CRITICAL", want: "critical"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := semgrepSeverity(tt.in); got != tt.want {
			t.Errorf("semgrepSeverity(%q) got = %q, want %q", tt.in, got, tt.want)
		}
	}
}
