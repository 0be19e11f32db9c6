package vulnscan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Javert5555/gitlab-monitor-sub000/cmd"
	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/runner"
)

// ErrEmptyReport is returned when a tool wrote nothing to stdout.
var ErrEmptyReport = errors.New("scanner produced an empty report")

// State of one scanner run. Succeeded and the Failed states are terminal.
type State int

const (
	Pending State = iota
	Cloned
	Invoked
	Succeeded
	FailedClone
	FailedInvoke
	FailedParse
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Cloned:
		return "cloned"
	case Invoked:
		return "invoked"
	case Succeeded:
		return "succeeded"
	case FailedClone:
		return "clone"
	case FailedInvoke:
		return "invoke"
	case FailedParse:
		return "parse"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s >= Succeeded
}

// CloneFunc fetches repoURL into dir.
type CloneFunc func(ctx context.Context, repoURL, dir string) error

// Scanner runs the external tools against a fresh clone of a project.
type Scanner struct {
	Client gitlab.Client
	Runner runner.ContainerRunner
	Clone  CloneFunc

	Images       map[string]string
	Timeout      time.Duration
	CloneTimeout time.Duration
	Workdir      string
}

func NewScanner(client gitlab.Client, r runner.ContainerRunner, cfg *config.Config) *Scanner {
	return &Scanner{
		Client:       client,
		Runner:       r,
		Clone:        cmd.Clone,
		Images:       cfg.Scanners.Images,
		Timeout:      cfg.Scanners.Timeout,
		CloneTimeout: cfg.Scanners.CloneTimeout,
		Workdir:      cfg.Scanners.Workdir,
	}
}

// run carries one scanner execution through its states.
type run struct {
	s       *Scanner
	adapter *Adapter
	project int
	ws      *cmd.Workspace

	state    State
	err      error
	findings []model.Finding
}

func (r *run) fail(state State, err error) {
	r.state = state
	r.err = err
}

func (r *run) clone(ctx context.Context) {
	url, err := r.s.Client.GetCloneURL(ctx, r.project)
	if err != nil {
		r.fail(FailedClone, fmt.Errorf("failed to get clone url: %w", err))
		return
	}

	if r.s.CloneTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.s.CloneTimeout)
		defer cancel()
	}

	if err := r.s.Clone(ctx, url, r.ws.RepoDir()); err != nil {
		r.fail(FailedClone, err)
		return
	}
	r.state = Cloned
}

func (r *run) invoke(ctx context.Context) [][]byte {
	image := r.s.image(r.adapter.Kind)
	targets := r.adapter.Targets(r.ws.RepoDir())

	var outputs [][]byte
	for i, target := range targets {
		out, err := r.runTarget(ctx, image, target)
		var exit *runner.ExitError
		if err != nil && !(errors.As(err, &exit) && len(out) > 0) {
			r.fail(FailedInvoke, err)
			return nil
		}
		outputs = append(outputs, out)

		// keep the raw report next to the clone for inspection while the run lasts
		if err := os.WriteFile(r.ws.ReportPath(r.adapter.Kind, i), out, 0600); err != nil {
			log.Printf("failed to write %s report, error: %v", r.adapter.Kind, err)
		}
	}

	r.state = Invoked
	return outputs
}

// runTarget bounds a single tool invocation by the scanner timeout.
func (r *run) runTarget(ctx context.Context, image, target string) ([]byte, error) {
	if r.s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.s.Timeout)
		defer cancel()
	}
	return r.s.Runner.Run(ctx, image, r.adapter.Command(target), r.ws.RepoDir())
}

func (r *run) parse(outputs [][]byte) {
	findings := []model.Finding{}
	for _, out := range outputs {
		records, err := r.adapter.Parse(out)
		if err != nil {
			r.fail(FailedParse, err)
			return
		}
		findings = append(findings, Normalize(r.adapter.Kind, records)...)
	}

	sortSeverity(findings)
	r.findings = findings
	r.state = Succeeded
}

func (s *Scanner) image(kind string) string {
	if img, ok := s.Images[kind]; ok && img != "" {
		return img
	}
	return config.Default().Scanners.Images[kind]
}

// RunScanner executes one scanner kind against the project. It never fails:
// any failure becomes a single FAIL finding tagged with the scanner kind.
func (s *Scanner) RunScanner(ctx context.Context, kind string, projectID int) (findings []model.Finding) {
	adapter, ok := adapterFor(kind)
	if !ok {
		return []model.Finding{failure(kind, kind, "invoke", fmt.Errorf("unknown scanner kind %q", kind))}
	}

	defer func() {
		if p := recover(); p != nil {
			findings = []model.Finding{failure(kind, adapter.Name, "scan", fmt.Errorf("panic: %v", p))}
		}
	}()

	ws, err := cmd.NewWorkspace(s.Workdir, fmt.Sprintf("project-%d-%s", projectID, kind))
	if err != nil {
		return []model.Finding{failure(kind, adapter.Name, "clone", fmt.Errorf("failed to create workspace: %w", err))}
	}
	defer func() {
		if err := ws.Release(); err != nil {
			log.Printf("failed to remove workspace %s, error: %v", ws.Path, err)
		}
	}()

	r := &run{s: s, adapter: adapter, project: projectID, ws: ws}

	log.Printf("Begin %s scan of project %d", adapter.Name, projectID)
	for !r.state.Terminal() {
		switch r.state {
		case Pending:
			r.clone(ctx)
		case Cloned:
			outputs := r.invoke(ctx)
			if r.state == Invoked {
				r.parse(outputs)
			}
		}
	}

	if r.state != Succeeded {
		log.Printf("%s", config.Red(fmt.Sprintf("%s scan failed at %s: %v", adapter.Name, r.state, r.err)))
		return []model.Finding{failure(kind, adapter.Name, r.state.String(), r.err)}
	}

	log.Printf("%s scan found %d issues", adapter.Name, len(r.findings))
	return r.findings
}

func failure(kind, name, stage string, err error) model.Finding {
	return model.Finding{
		Item:     name + " scan",
		Status:   model.StatusFail,
		Severity: model.SeverityInfo,
		Details:  fmt.Sprintf("%s failed: %v", stage, err),
		Metadata: &model.Metadata{Scanner: kind},
	}
}
