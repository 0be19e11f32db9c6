package vulnscan

import (
	"sort"
	"strings"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
)

func sortSeverity(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return config.SeverityMap[strings.ToLower(string(findings[i].Severity))] >
			config.SeverityMap[strings.ToLower(string(findings[j].Severity))]
	})
}
