package gitlab

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("gitlab: resource not found")

// Client is the read-only view of a GitLab instance needed to assess a project.
type Client interface {
	GetProtectedBranches(ctx context.Context, projectID int) ([]ProtectedBranch, error)
	GetBranches(ctx context.Context, projectID int) ([]Branch, error)
	GetMergeRequests(ctx context.Context, projectID int, state string) ([]MergeRequest, error)
	GetProjectPipelines(ctx context.Context, projectID int) ([]Pipeline, error)
	GetPipelineJobs(ctx context.Context, projectID, pipelineID int) ([]Job, error)
	GetRawFile(ctx context.Context, projectID int, path string) (string, error)
	GetGitlabCIFile(ctx context.Context, projectID int) (string, error)
	GetProjectDetails(ctx context.Context, projectID int) (*Project, error)
	GetProjectVariables(ctx context.Context, projectID int) ([]Variable, error)
	GetProjectMembers(ctx context.Context, projectID int) ([]Member, error)
	GetDeployKeys(ctx context.Context, projectID int) ([]DeployKey, error)
	GetRepositoryTree(ctx context.Context, projectID int, recursive bool) ([]TreeNode, error)
	GetProjectEnvironments(ctx context.Context, projectID int) ([]Environment, error)
	GetProjectDeployments(ctx context.Context, projectID int) ([]Deployment, error)
	GetProjectRunners(ctx context.Context, projectID int) ([]Runner, error)
	GetProjectHooks(ctx context.Context, projectID int) ([]Hook, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	GetJobArtifactFile(ctx context.Context, projectID, jobID int, path string) ([]byte, error)
	// GetCloneURL returns an HTTPS clone URL carrying the client credentials.
	GetCloneURL(ctx context.Context, projectID int) (string, error)
}
