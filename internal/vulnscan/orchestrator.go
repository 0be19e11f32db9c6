package vulnscan

import (
	"context"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	"golang.org/x/sync/errgroup"
)

// Kinds returns the known scanner kinds in output order.
func Kinds() []string {
	kinds := make([]string, 0, len(adapters))
	for _, a := range adapters {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

// RunAll runs the kinds concurrently and concatenates their findings in
// the order the kinds were given. One kind failing never affects another.
func (s *Scanner) RunAll(ctx context.Context, projectID int, kinds []string) []model.Finding {
	results := make([][]model.Finding, len(kinds))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			results[i] = s.RunScanner(ctx, kind, projectID)
			return nil
		})
	}
	_ = g.Wait()

	findings := []model.Finding{}
	for _, r := range results {
		findings = append(findings, r...)
	}
	return findings
}

// EnabledKinds filters the known kinds by configuration, keeping declaration order.
func EnabledKinds(cfg *config.Config) []string {
	var kinds []string
	for _, k := range Kinds() {
		if cfg.ScannerEnabled(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
