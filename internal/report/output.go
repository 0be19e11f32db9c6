package report

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	"github.com/olekukonko/tablewriter"
)

const maxDetails = 200

// ResolveReport prints the summary banner followed by the check and scanner tables.
func ResolveReport(ctx context.Context, r *model.ScanReport, s model.ScanSummary) error {
	if r == nil {
		return fmt.Errorf("no report to print")
	}

	fmt.Printf("\nProject %d | Report %s | Generated at %s\n",
		r.ProjectID, r.ID, r.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Printf("\nDetected %s risks | "+
		"Critical: %s High: %s Medium: %s Low: %s\n\n",
		config.Yellow(s.TotalRisks),
		config.Red(s.Critical),
		config.Pink(s.High),
		config.Yellow(s.Medium),
		config.Green(s.Low))

	resolveChecks(r.CheckResults)
	resolveScanners(r.ScannerFindings)

	return nil
}

func resolveChecks(results []model.CheckResult) {
	if len(results) < 1 {
		return
	}
	fmt.Printf("Policy checks:\n")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Check", "Item", "Status", "Severity", "Details"})
	table.SetRowLine(true)
	table.SetAutoMergeCellsByColumnIndex([]int{0, 1})

	for _, c := range results {
		for _, f := range c.Findings {
			table.Append([]string{
				c.ID, c.Name, f.Item, judgeStatus(f.Status),
				judgeSeverity(string(f.Severity)), details(f),
			})
		}
	}
	table.Render()
}

func resolveScanners(findings []model.Finding) {
	if len(findings) < 1 {
		fmt.Printf("\nNo scanner findings\n")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Item", "Identifier", "Location", "Severity", "Details"})
	table.SetRowLine(true)

	var currentScanner string
	for i, f := range findings {
		scanner := ""
		if f.Metadata != nil {
			scanner = f.Metadata.Scanner
		}

		if i == 0 || scanner != currentScanner {
			if i > 0 {
				table.Render()
				table.ClearRows()
			}
			currentScanner = scanner
			fmt.Printf("\n\nScanner %s:\n", scanner)
		}

		identifier, location := "", ""
		if f.Metadata != nil && f.Metadata.Vulnerability != nil {
			v := f.Metadata.Vulnerability
			identifier = v.Identifier
			if v.Location != nil {
				location = v.Location.File
				if v.Location.Line > 0 {
					location += ":" + strconv.Itoa(v.Location.Line)
				}
			}
		}

		table.Append([]string{
			strconv.Itoa(i + 1), f.Item, identifier, location,
			judgeSeverity(string(f.Severity)), details(f),
		})
	}
	table.Render()
}

// details limits the length of the description and appends listed items.
func details(f model.Finding) string {
	des := f.Details
	if f.Metadata != nil && len(f.Metadata.Items) > 0 {
		des = fmt.Sprintf("%s\n%s", des, strings.Join(f.Metadata.Items, "\n"))
	}

	if r := []rune(des); len(r) > maxDetails {
		des = string(r[:maxDetails]) + " ..."
	}
	return des
}

func judgeStatus(status model.Status) string {
	switch status {
	case model.StatusDanger:
		return config.Red(string(status))
	case model.StatusFail:
		return config.Pink(string(status))
	case model.StatusWarn:
		return config.Yellow(string(status))
	case model.StatusOK:
		return config.Green(string(status))
	default:
		return string(status)
	}
}

func judgeSeverity(severity string) string {

	severityLow := strings.ToLower(severity)

	switch severityLow {
	case "critical":
		return config.Red("critical")
	case "high":
		return config.Pink("high")
	case "medium":
		return config.Yellow("medium")
	case "low":
		return config.Green("low")
	case "info":
		return "info"
	case "":
		return "-"
	default:
		// ignore
	}
	return "unknown"
}
