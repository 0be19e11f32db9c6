package model

import "github.com/Javert5555/gitlab-monitor-sub000/pkg/gitlab"

// ProjectSnapshot holds everything read from GitLab for one assessment run.
// It is built once and only read afterwards. Slices are never nil.
type ProjectSnapshot struct {
	ProjectID int

	ProtectedBranches   []gitlab.ProtectedBranch
	Branches            []gitlab.Branch
	MergedMergeRequests []gitlab.MergeRequest
	Pipelines           []gitlab.Pipeline
	// jobs of the most recent pipelines, keyed by pipeline id
	PipelineJobs map[int][]gitlab.Job
	// nil when the project has no CI file or it could not be read
	CIConfig *string
	Project  *gitlab.Project

	Variables    []gitlab.Variable
	Members      []gitlab.Member
	DeployKeys   []gitlab.DeployKey
	Tree         []gitlab.TreeNode
	Environments []gitlab.Environment
	Deployments  []gitlab.Deployment
	Runners      []gitlab.Runner
	Hooks        []gitlab.Hook
	Users        []gitlab.User
}

func EmptySnapshot(projectID int) *ProjectSnapshot {
	return &ProjectSnapshot{
		ProjectID:           projectID,
		ProtectedBranches:   []gitlab.ProtectedBranch{},
		Branches:            []gitlab.Branch{},
		MergedMergeRequests: []gitlab.MergeRequest{},
		Pipelines:           []gitlab.Pipeline{},
		PipelineJobs:        map[int][]gitlab.Job{},
		Variables:           []gitlab.Variable{},
		Members:             []gitlab.Member{},
		DeployKeys:          []gitlab.DeployKey{},
		Tree:                []gitlab.TreeNode{},
		Environments:        []gitlab.Environment{},
		Deployments:         []gitlab.Deployment{},
		Runners:             []gitlab.Runner{},
		Hooks:               []gitlab.Hook{},
		Users:               []gitlab.User{},
	}
}

// CIContent returns the CI file text, empty when absent.
func (s *ProjectSnapshot) CIContent() string {
	if s.CIConfig == nil {
		return ""
	}
	return *s.CIConfig
}

// HasFile reports whether a blob with the given path exists in the tree.
func (s *ProjectSnapshot) HasFile(path string) bool {
	for _, n := range s.Tree {
		if n.Type == "blob" && n.Path == path {
			return true
		}
	}
	return false
}

// UserByID resolves a member against the instance users list.
func (s *ProjectSnapshot) UserByID(id int) (gitlab.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return gitlab.User{}, false
}
