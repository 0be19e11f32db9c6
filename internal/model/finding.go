package model

import "strings"

type Status string

const (
	StatusOK     Status = "OK"
	StatusWarn   Status = "WARN"
	StatusFail   Status = "FAIL"
	StatusDanger Status = "DANGER"
	StatusInfo   Status = "INFO"
	StatusLow    Status = "LOW"
)

// IsRisk reports whether the status counts towards the total risk figure.
func (s Status) IsRisk() bool {
	return s == StatusFail || s == StatusWarn || s == StatusDanger
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
	SeverityUnknown  Severity = "unknown"
)

// NormalizeSeverity lower-cases a tool severity and maps blanks to unknown.
func NormalizeSeverity(s string) Severity {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "null" {
		return SeverityUnknown
	}
	return Severity(s)
}

// StatusForSeverity is the total mapping used for every scanner finding.
func StatusForSeverity(s Severity) Status {
	switch strings.ToLower(string(s)) {
	case "critical":
		return StatusDanger
	case "high", "medium", "low":
		return StatusWarn
	case "info":
		return StatusLow
	default:
		return StatusInfo
	}
}

type Location struct {
	File string `json:"file"`
	Line int    `json:"line,omitempty"`
}

type Vulnerability struct {
	Identifier  string    `json:"identifier"`
	Category    string    `json:"category,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Remediation string    `json:"remediation,omitempty"`
}

type Metadata struct {
	Scanner       string         `json:"scanner,omitempty"`
	Vulnerability *Vulnerability `json:"vulnerability,omitempty"`
	Items         []string       `json:"items,omitempty"`
}

type Finding struct {
	Item     string    `json:"item"`
	Status   Status    `json:"status"`
	Severity Severity  `json:"severity,omitempty"`
	Details  string    `json:"details"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type CheckResult struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Findings []Finding `json:"findings"`
}
