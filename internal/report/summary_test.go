package report

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/json"
)

func sampleResults() []model.CheckResult {
	return []model.CheckResult{
		{
			ID:   "CICD-SEC-1",
			Name: "Insufficient Flow Control Mechanisms",
			Findings: []model.Finding{
				{Item: "main/master protection", Status: model.StatusOK},
				{Item: "Sensitive branch protection", Status: model.StatusFail, Severity: model.SeverityHigh},
				{Item: "Force push", Status: model.StatusWarn, Severity: model.SeverityMedium},
			},
		},
		{
			ID:   "CICD-SEC-6",
			Name: "Insufficient Credential Hygiene",
			Findings: []model.Finding{
				{Item: "Hard-coded secrets", Status: model.StatusDanger, Severity: model.SeverityCritical},
				{Item: "Environment separation", Status: model.StatusInfo},
			},
		},
	}
}

func sampleScannerFindings() []model.Finding {
	return []model.Finding{
		{Item: "aws-key", Status: model.StatusDanger, Severity: model.SeverityCritical},
		{Item: "CVE-2020-0001", Status: model.StatusInfo, Severity: model.SeverityUnknown},
		{Item: "todo", Status: model.StatusLow, Severity: model.SeverityInfo},
		{Item: "CVE-2021-23337", Status: model.StatusWarn, Severity: "LOW"},
		{Item: "Gitleaks scan", Status: model.StatusFail, Severity: model.SeverityInfo},
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		results  []model.CheckResult
		findings []model.Finding
		want     model.ScanSummary
	}{
		{
			name: "empty",
			want: model.ScanSummary{},
		},
		{
			name:     "mixed",
			results:  sampleResults(),
			findings: sampleScannerFindings(),
			want:     model.ScanSummary{TotalRisks: 6, Critical: 2, High: 1, Medium: 1, Low: 1},
		},
		{
			name: "non risk statuses ignored",
			findings: []model.Finding{
				{Status: model.StatusOK, Severity: model.SeverityCritical},
				{Status: model.StatusInfo, Severity: model.SeverityHigh},
				{Status: model.StatusLow, Severity: model.SeverityLow},
			},
			want: model.ScanSummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.results, tt.findings)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Summarize() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSummarizeOrderIndependent(t *testing.T) {
	results := sampleResults()
	findings := sampleScannerFindings()
	want := Summarize(results, findings)

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rnd.Shuffle(len(results), func(a, b int) { results[a], results[b] = results[b], results[a] })
		for _, r := range results {
			fs := r.Findings
			rnd.Shuffle(len(fs), func(a, b int) { fs[a], fs[b] = fs[b], fs[a] })
		}
		rnd.Shuffle(len(findings), func(a, b int) { findings[a], findings[b] = findings[b], findings[a] })

		got := Summarize(results, findings)
		assert.Equal(t, want, got)
		assert.LessOrEqual(t, got.Critical+got.High+got.Medium+got.Low, got.TotalRisks)
	}
}

func TestSummarizeReport(t *testing.T) {
	assert.Equal(t, model.ScanSummary{}, SummarizeReport(nil))

	r := &model.ScanReport{CheckResults: sampleResults(), ScannerFindings: sampleScannerFindings()}
	assert.Equal(t, Summarize(r.CheckResults, r.ScannerFindings), SummarizeReport(r))
}

func TestDetails(t *testing.T) {
	f := model.Finding{
		Details:  "2 unprotected variables",
		Metadata: &model.Metadata{Items: []string{"DB_PASSWORD", "API_TOKEN"}},
	}
	assert.Equal(t, "2 unprotected variables\nDB_PASSWORD\nAPI_TOKEN", details(f))

	long := model.Finding{Details: string(make([]byte, 300))}
	assert.Len(t, details(long), maxDetails+len(" ..."))

	cyrillic := model.Finding{Details: strings.Repeat("ж", 300)}
	got := details(cyrillic)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ж", maxDetails)+" ...", got)
}

func TestJudgeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "info", want: "info"},
		{in: "", want: "-"},
		{in: "weird", want: "unknown"},
	}
	for _, tt := range tests {
		if got := judgeSeverity(tt.in); got != tt.want {
			t.Errorf("judgeSeverity(%q) got = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReportToJson(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "scan.json")
	ctx := context.WithValue(context.Background(), OutputKey, out)

	r := &model.ScanReport{
		ID:              "4b0d3f5e-52a4-4c4f-9d7e-3a3f0a2b1c11",
		ProjectID:       42,
		CheckResults:    sampleResults(),
		ScannerFindings: sampleScannerFindings(),
		GeneratedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	filename, err := ReportToJson(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, out, filename)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var got struct {
		ID        string            `json:"id"`
		ProjectID int               `json:"project_id"`
		Summary   model.ScanSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, 42, got.ProjectID)
	assert.Equal(t, SummarizeReport(r), got.Summary)
}
