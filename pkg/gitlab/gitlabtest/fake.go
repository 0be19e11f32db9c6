// Package gitlabtest provides an in-memory gitlab.Client for tests.
package gitlabtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"
)

// Fake serves canned data. Errors and panics can be injected per method name.
type Fake struct {
	ProtectedBranches []gitlab.ProtectedBranch
	Branches          []gitlab.Branch
	MergeRequests     []gitlab.MergeRequest
	Pipelines         []gitlab.Pipeline
	Jobs              map[int][]gitlab.Job
	Files             map[string]string
	Project           *gitlab.Project
	Variables         []gitlab.Variable
	Members           []gitlab.Member
	DeployKeys        []gitlab.DeployKey
	Tree              []gitlab.TreeNode
	Environments      []gitlab.Environment
	Deployments       []gitlab.Deployment
	Runners           []gitlab.Runner
	Hooks             []gitlab.Hook
	Users             []gitlab.User
	// artifacts keyed by "<jobID>/<path>"
	Artifacts map[string][]byte
	CloneURL  string

	Errors map[string]error
	Panics map[string]bool

	mu    sync.Mutex
	calls map[string]int
}

var _ gitlab.Client = (*Fake)(nil)

func (f *Fake) enter(method string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[method]++
	f.mu.Unlock()

	if f.Panics[method] {
		panic(fmt.Sprintf("%s exploded", method))
	}
	return f.Errors[method]
}

// Calls returns how often method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) GetProtectedBranches(ctx context.Context, projectID int) ([]gitlab.ProtectedBranch, error) {
	if err := f.enter("GetProtectedBranches"); err != nil {
		return nil, err
	}
	return f.ProtectedBranches, nil
}

func (f *Fake) GetBranches(ctx context.Context, projectID int) ([]gitlab.Branch, error) {
	if err := f.enter("GetBranches"); err != nil {
		return nil, err
	}
	return f.Branches, nil
}

func (f *Fake) GetMergeRequests(ctx context.Context, projectID int, state string) ([]gitlab.MergeRequest, error) {
	if err := f.enter("GetMergeRequests"); err != nil {
		return nil, err
	}

	mrs := []gitlab.MergeRequest{}
	for _, mr := range f.MergeRequests {
		if state == "" || mr.State == state {
			mrs = append(mrs, mr)
		}
	}
	return mrs, nil
}

func (f *Fake) GetProjectPipelines(ctx context.Context, projectID int) ([]gitlab.Pipeline, error) {
	if err := f.enter("GetProjectPipelines"); err != nil {
		return nil, err
	}
	return f.Pipelines, nil
}

func (f *Fake) GetPipelineJobs(ctx context.Context, projectID, pipelineID int) ([]gitlab.Job, error) {
	if err := f.enter("GetPipelineJobs"); err != nil {
		return nil, err
	}
	return f.Jobs[pipelineID], nil
}

func (f *Fake) GetRawFile(ctx context.Context, projectID int, path string) (string, error) {
	if err := f.enter("GetRawFile"); err != nil {
		return "", err
	}
	content, ok := f.Files[path]
	if !ok {
		return "", gitlab.ErrNotFound
	}
	return content, nil
}

func (f *Fake) GetGitlabCIFile(ctx context.Context, projectID int) (string, error) {
	if err := f.enter("GetGitlabCIFile"); err != nil {
		return "", err
	}
	content, ok := f.Files[".gitlab-ci.yml"]
	if !ok {
		return "", gitlab.ErrNotFound
	}
	return content, nil
}

func (f *Fake) GetProjectDetails(ctx context.Context, projectID int) (*gitlab.Project, error) {
	if err := f.enter("GetProjectDetails"); err != nil {
		return nil, err
	}
	if f.Project == nil {
		return nil, gitlab.ErrNotFound
	}
	return f.Project, nil
}

func (f *Fake) GetProjectVariables(ctx context.Context, projectID int) ([]gitlab.Variable, error) {
	if err := f.enter("GetProjectVariables"); err != nil {
		return nil, err
	}
	return f.Variables, nil
}

func (f *Fake) GetProjectMembers(ctx context.Context, projectID int) ([]gitlab.Member, error) {
	if err := f.enter("GetProjectMembers"); err != nil {
		return nil, err
	}
	return f.Members, nil
}

func (f *Fake) GetDeployKeys(ctx context.Context, projectID int) ([]gitlab.DeployKey, error) {
	if err := f.enter("GetDeployKeys"); err != nil {
		return nil, err
	}
	return f.DeployKeys, nil
}

func (f *Fake) GetRepositoryTree(ctx context.Context, projectID int, recursive bool) ([]gitlab.TreeNode, error) {
	if err := f.enter("GetRepositoryTree"); err != nil {
		return nil, err
	}
	return f.Tree, nil
}

func (f *Fake) GetProjectEnvironments(ctx context.Context, projectID int) ([]gitlab.Environment, error) {
	if err := f.enter("GetProjectEnvironments"); err != nil {
		return nil, err
	}
	return f.Environments, nil
}

func (f *Fake) GetProjectDeployments(ctx context.Context, projectID int) ([]gitlab.Deployment, error) {
	if err := f.enter("GetProjectDeployments"); err != nil {
		return nil, err
	}
	return f.Deployments, nil
}

func (f *Fake) GetProjectRunners(ctx context.Context, projectID int) ([]gitlab.Runner, error) {
	if err := f.enter("GetProjectRunners"); err != nil {
		return nil, err
	}
	return f.Runners, nil
}

func (f *Fake) GetProjectHooks(ctx context.Context, projectID int) ([]gitlab.Hook, error) {
	if err := f.enter("GetProjectHooks"); err != nil {
		return nil, err
	}
	return f.Hooks, nil
}

func (f *Fake) GetAllUsers(ctx context.Context) ([]gitlab.User, error) {
	if err := f.enter("GetAllUsers"); err != nil {
		return nil, err
	}
	return f.Users, nil
}

func (f *Fake) GetJobArtifactFile(ctx context.Context, projectID, jobID int, path string) ([]byte, error) {
	if err := f.enter("GetJobArtifactFile"); err != nil {
		return nil, err
	}
	data, ok := f.Artifacts[fmt.Sprintf("%d/%s", jobID, path)]
	if !ok {
		return nil, gitlab.ErrNotFound
	}
	return data, nil
}

func (f *Fake) GetCloneURL(ctx context.Context, projectID int) (string, error) {
	if err := f.enter("GetCloneURL"); err != nil {
		return "", err
	}
	return f.CloneURL, nil
}
