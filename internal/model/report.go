package model

import "time"

type ScanReport struct {
	ID              string        `json:"id"`
	ProjectID       int           `json:"project_id"`
	CheckResults    []CheckResult `json:"check_results"`
	ScannerFindings []Finding     `json:"scanner_findings"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

type ScanSummary struct {
	TotalRisks int `json:"total_risks"`
	Critical   int `json:"critical"`
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
}
