package report

import (
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
)

// Summarize folds every finding into risk counts. The result does not
// depend on the order of checks or findings.
func Summarize(checkResults []model.CheckResult, scannerFindings []model.Finding) model.ScanSummary {
	var s model.ScanSummary

	for _, r := range checkResults {
		for _, f := range r.Findings {
			addFinding(&s, f)
		}
	}
	for _, f := range scannerFindings {
		addFinding(&s, f)
	}

	return s
}

// SummarizeReport recomputes the summary of a stored report.
func SummarizeReport(r *model.ScanReport) model.ScanSummary {
	if r == nil {
		return model.ScanSummary{}
	}
	return Summarize(r.CheckResults, r.ScannerFindings)
}

func addFinding(s *model.ScanSummary, f model.Finding) {
	if !f.Status.IsRisk() {
		return
	}
	s.TotalRisks += 1

	switch strings.ToLower(string(f.Severity)) {
	case "critical":
		s.Critical += 1
	case "high":
		s.High += 1
	case "medium":
		s.Medium += 1
	case "low":
		s.Low += 1
	default:
		// ignore
	}
}
