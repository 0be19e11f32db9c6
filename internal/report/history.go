package report

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/analyzer"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/store"

	"github.com/olekukonko/tablewriter"
)

// ResolveHistory prints stored reports, newest first.
func ResolveHistory(entries []store.Entry) {
	if len(entries) < 1 {
		fmt.Printf("No stored reports\n")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Report", "Project", "Generated At", "Risks", "Critical", "High", "Medium", "Low"})
	table.SetAutoMergeCellsByColumnIndex([]int{2})

	for i, e := range entries {
		table.Append([]string{
			strconv.Itoa(i + 1), e.ID, strconv.Itoa(e.ProjectID),
			e.GeneratedAt.Local().Format("2006-01-02 15:04:05"),
			config.Yellow(e.Summary.TotalRisks),
			config.Red(e.Summary.Critical),
			config.Pink(e.Summary.High),
			config.Yellow(e.Summary.Medium),
			config.Green(e.Summary.Low),
		})
	}
	table.Render()
}

// ResolveChecks prints the policy check registry.
func ResolveChecks(checks []analyzer.Check) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name"})

	for _, c := range checks {
		table.Append([]string{c.ID, c.Name})
	}
	table.Render()
}
