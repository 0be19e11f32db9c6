package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Javert5555/gitlab-monitor-sub000/config"
	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"
	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"

	"golang.org/x/sync/errgroup"
)

// Aggregator collects a ProjectSnapshot with one concurrent read per source.
type Aggregator struct {
	Client gitlab.Client
	// number of most recent pipelines whose jobs are fetched
	JobPipelines int
}

func New(client gitlab.Client, jobPipelines int) *Aggregator {
	return &Aggregator{Client: client, JobPipelines: jobPipelines}
}

// orEmpty logs a failed read and degrades it to an empty collection.
func orEmpty[T any](name string, items []T, err error) []T {
	if err != nil {
		log.Printf("failed to get %s, error: %v", name, err)
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// spawn runs fn on the group. A failed or panicking read only leaves its
// own field at the empty default.
func spawn(g *errgroup.Group, name string, fn func()) {
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("%s", config.Red(fmt.Sprintf("%s fetch panicked: %v", name, r)))
			}
		}()

		fn()
		return nil
	})
}

// FetchSnapshot never fails. Each unavailable source is left empty, and a
// failure of the fan-out itself yields an entirely empty snapshot.
func (a *Aggregator) FetchSnapshot(ctx context.Context, projectID int) (result *model.ProjectSnapshot) {
	log.Printf("%s", config.Green(fmt.Sprintf("Collecting data of project %d", projectID)))

	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s", config.Red(fmt.Sprintf("Collecting data failed, error: %v", r)))
			result = model.EmptySnapshot(projectID)
		}
	}()

	snap := model.EmptySnapshot(projectID)
	c := a.Client

	g, gctx := errgroup.WithContext(ctx)

	spawn(g, "protected branches", func() {
		items, err := c.GetProtectedBranches(gctx, projectID)
		snap.ProtectedBranches = orEmpty("protected branches", items, err)
	})

	spawn(g, "branches", func() {
		items, err := c.GetBranches(gctx, projectID)
		snap.Branches = orEmpty("branches", items, err)
	})

	spawn(g, "merge requests", func() {
		items, err := c.GetMergeRequests(gctx, projectID, "merged")
		snap.MergedMergeRequests = orEmpty("merged merge requests", items, err)
	})

	// jobs depend on the pipeline ids, so both are read by the same branch
	spawn(g, "pipelines", func() {
		items, err := c.GetProjectPipelines(gctx, projectID)
		snap.Pipelines = orEmpty("pipelines", items, err)

		jobs := map[int][]gitlab.Job{}
		for i, p := range snap.Pipelines {
			if i >= a.JobPipelines {
				break
			}
			items, err := c.GetPipelineJobs(gctx, projectID, p.ID)
			jobs[p.ID] = orEmpty(fmt.Sprintf("jobs of pipeline %d", p.ID), items, err)
		}
		snap.PipelineJobs = jobs
	})

	spawn(g, "ci config", func() {
		content, err := c.GetGitlabCIFile(gctx, projectID)
		if err != nil {
			if !errors.Is(err, gitlab.ErrNotFound) {
				log.Printf("failed to get .gitlab-ci.yml, error: %v", err)
			}
			return
		}
		snap.CIConfig = &content
	})

	spawn(g, "project", func() {
		project, err := c.GetProjectDetails(gctx, projectID)
		if err != nil {
			log.Printf("failed to get project details, error: %v", err)
			return
		}
		snap.Project = project
	})

	spawn(g, "variables", func() {
		items, err := c.GetProjectVariables(gctx, projectID)
		snap.Variables = orEmpty("variables", items, err)
	})

	spawn(g, "members", func() {
		items, err := c.GetProjectMembers(gctx, projectID)
		snap.Members = orEmpty("members", items, err)
	})

	spawn(g, "deploy keys", func() {
		items, err := c.GetDeployKeys(gctx, projectID)
		snap.DeployKeys = orEmpty("deploy keys", items, err)
	})

	spawn(g, "tree", func() {
		items, err := c.GetRepositoryTree(gctx, projectID, true)
		snap.Tree = orEmpty("repository tree", items, err)
	})

	spawn(g, "environments", func() {
		items, err := c.GetProjectEnvironments(gctx, projectID)
		snap.Environments = orEmpty("environments", items, err)
	})

	spawn(g, "deployments", func() {
		items, err := c.GetProjectDeployments(gctx, projectID)
		snap.Deployments = orEmpty("deployments", items, err)
	})

	spawn(g, "runners", func() {
		items, err := c.GetProjectRunners(gctx, projectID)
		snap.Runners = orEmpty("runners", items, err)
	})

	spawn(g, "hooks", func() {
		items, err := c.GetProjectHooks(gctx, projectID)
		snap.Hooks = orEmpty("hooks", items, err)
	})

	spawn(g, "users", func() {
		items, err := c.GetAllUsers(gctx)
		snap.Users = orEmpty("users", items, err)
	})

	_ = g.Wait()

	return snap
}
