package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/aggregator"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/analyzer"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/report"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/vulnscan"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/runner"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Snapshotter builds the project snapshot shared by every check.
type Snapshotter interface {
	FetchSnapshot(ctx context.Context, projectID int) *model.ProjectSnapshot
}

// Orchestrator runs the external scanner kinds.
type Orchestrator interface {
	RunAll(ctx context.Context, projectID int, kinds []string) []model.Finding
}

// Assessor produces one ScanReport per project.
type Assessor struct {
	Client       gitlab.Client
	Aggregator   Snapshotter
	Checks       []analyzer.Check
	Orchestrator Orchestrator
	Kinds        []string
	// optional
	Sink store.Sink

	now func() time.Time
}

func NewAssessor(client gitlab.Client, r runner.ContainerRunner, cfg *config.Config, sink store.Sink) *Assessor {
	return &Assessor{
		Client:       client,
		Aggregator:   aggregator.New(client, cfg.Aggregator.JobPipelines),
		Checks:       analyzer.Checks(analyzer.SettingsFromConfig(cfg)),
		Orchestrator: vulnscan.NewScanner(client, r, cfg),
		Kinds:        vulnscan.EnabledKinds(cfg),
		Sink:         sink,
	}
}

// Assess fetches the snapshot, runs the checks and scanners and assembles
// the report. It never fails: every failure is carried as a finding.
func (a *Assessor) Assess(ctx context.Context, projectID int) *model.ScanReport {
	log.Printf("%s", config.Green(fmt.Sprintf("Begin assessment of project %d", projectID)))

	var results []model.CheckResult
	findings := []model.Finding{}

	var g errgroup.Group
	g.Go(func() error {
		snap := a.snapshot(ctx, projectID)
		results = a.runChecks(ctx, projectID, snap)
		return nil
	})

	if a.Orchestrator != nil && len(a.Kinds) > 0 {
		g.Go(func() error {
			findings = a.runScanners(ctx, projectID)
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now
	if a.now != nil {
		now = a.now
	}

	r := &model.ScanReport{
		ID:              uuid.NewString(),
		ProjectID:       projectID,
		CheckResults:    results,
		ScannerFindings: findings,
		GeneratedAt:     now().UTC(),
	}

	summary := report.Summarize(r.CheckResults, r.ScannerFindings)
	log.Printf("Assessment of project %d finished with %s risks", projectID, config.Yellow(summary.TotalRisks))

	if a.Sink != nil {
		if err := a.Sink.Save(ctx, r, summary); err != nil {
			log.Printf("failed to save report %s, error: %v", r.ID, err)
		}
	}

	return r
}

func (a *Assessor) snapshot(ctx context.Context, projectID int) (snap *model.ProjectSnapshot) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("%s", config.Red(fmt.Sprintf("snapshot of project %d panicked: %v", projectID, p)))
			snap = model.EmptySnapshot(projectID)
		}
	}()

	snap = a.Aggregator.FetchSnapshot(ctx, projectID)
	if snap == nil {
		snap = model.EmptySnapshot(projectID)
	}
	return snap
}

func (a *Assessor) runScanners(ctx context.Context, projectID int) (findings []model.Finding) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("%s", config.Red(fmt.Sprintf("scanner orchestrator panicked: %v", p)))
			findings = []model.Finding{}
		}
	}()

	findings = a.Orchestrator.RunAll(ctx, projectID, a.Kinds)
	if findings == nil {
		findings = []model.Finding{}
	}
	return findings
}

// runChecks evaluates every check concurrently. Results keep registry order.
func (a *Assessor) runChecks(ctx context.Context, projectID int, snap *model.ProjectSnapshot) []model.CheckResult {
	results := make([]model.CheckResult, len(a.Checks))

	var g errgroup.Group
	for i, c := range a.Checks {
		i, c := i, c
		g.Go(func() error {
			results[i] = a.runCheck(ctx, c, projectID, snap)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Assessor) runCheck(ctx context.Context, c analyzer.Check, projectID int, snap *model.ProjectSnapshot) (result model.CheckResult) {
	defer func() {
		if p := recover(); p != nil {
			result = checkFailure(c, fmt.Errorf("panic: %v", p))
		}
	}()

	res, err := c.Run(ctx, projectID, snap, a.Client)
	if err == nil && res == nil {
		err = errors.New("check returned no result")
	}
	if err != nil {
		log.Printf("check %s failed, error: %v", c.ID, err)
		return checkFailure(c, err)
	}

	result = *res
	result.ID, result.Name = c.ID, c.Name
	if result.Findings == nil {
		result.Findings = []model.Finding{}
	}
	return result
}

func checkFailure(c analyzer.Check, err error) model.CheckResult {
	return model.CheckResult{
		ID:   c.ID,
		Name: c.Name,
		Findings: []model.Finding{{
			Item:     "Check execution",
			Status:   model.StatusFail,
			Severity: model.SeverityHigh,
			Details:  fmt.Sprintf("Check execution failed: %v", err),
		}},
	}
}
