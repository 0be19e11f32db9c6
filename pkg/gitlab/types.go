package gitlab

import "time"

type AccessLevel struct {
	AccessLevel            int    `json:"access_level"`
	AccessLevelDescription string `json:"access_level_description"`
}

type ProtectedBranch struct {
	ID                        int           `json:"id"`
	Name                      string        `json:"name"`
	PushAccessLevels          []AccessLevel `json:"push_access_levels"`
	MergeAccessLevels         []AccessLevel `json:"merge_access_levels"`
	AllowForcePush            bool          `json:"allow_force_push"`
	CodeOwnerApprovalRequired bool          `json:"code_owner_approval_required"`
}

type Commit struct {
	ID            string     `json:"id"`
	ShortID       string     `json:"short_id"`
	Title         string     `json:"title"`
	AuthorName    string     `json:"author_name"`
	CommittedDate *time.Time `json:"committed_date"`
}

type Branch struct {
	Name               string  `json:"name"`
	Protected          bool    `json:"protected"`
	Default            bool    `json:"default"`
	Merged             bool    `json:"merged"`
	DevelopersCanPush  bool    `json:"developers_can_push"`
	DevelopersCanMerge bool    `json:"developers_can_merge"`
	Commit             *Commit `json:"commit"`
}

type BasicUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	State    string `json:"state"`
}

type MergeRequest struct {
	ID                   int        `json:"id"`
	IID                  int        `json:"iid"`
	Title                string     `json:"title"`
	State                string     `json:"state"`
	SourceBranch         string     `json:"source_branch"`
	TargetBranch         string     `json:"target_branch"`
	ApprovalsBeforeMerge int        `json:"approvals_before_merge"`
	MergedAt             *time.Time `json:"merged_at"`
	Author               *BasicUser `json:"author"`
	MergedBy             *BasicUser `json:"merged_by"`
}

type Pipeline struct {
	ID        int        `json:"id"`
	IID       int        `json:"iid"`
	Status    string     `json:"status"`
	Source    string     `json:"source"`
	Ref       string     `json:"ref"`
	SHA       string     `json:"sha"`
	WebURL    string     `json:"web_url"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type JobArtifact struct {
	FileType   string `json:"file_type"`
	Filename   string `json:"filename"`
	Size       int    `json:"size"`
	FileFormat string `json:"file_format"`
}

type Job struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Stage      string        `json:"stage"`
	Status     string        `json:"status"`
	Ref        string        `json:"ref"`
	Tag        bool          `json:"tag"`
	AllowFail  bool          `json:"allow_failure"`
	Artifacts  []JobArtifact `json:"artifacts"`
	CreatedAt  *time.Time    `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at"`
}

type Project struct {
	ID                               int    `json:"id"`
	Name                             string `json:"name"`
	PathWithNamespace                string `json:"path_with_namespace"`
	Visibility                       string `json:"visibility"`
	DefaultBranch                    string `json:"default_branch"`
	HTTPURLToRepo                    string `json:"http_url_to_repo"`
	WebURL                           string `json:"web_url"`
	CIConfigPath                     string `json:"ci_config_path"`
	SharedRunnersEnabled             bool   `json:"shared_runners_enabled"`
	PublicJobs                       bool   `json:"public_jobs"`
	OnlyAllowMergeIfPipelineSucceeds bool   `json:"only_allow_merge_if_pipeline_succeeds"`
}

type Variable struct {
	Key              string `json:"key"`
	Value            string `json:"value"`
	VariableType     string `json:"variable_type"`
	Protected        bool   `json:"protected"`
	Masked           bool   `json:"masked"`
	Raw              bool   `json:"raw"`
	EnvironmentScope string `json:"environment_scope"`
}

type Member struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	State        string     `json:"state"`
	AccessLevel  int        `json:"access_level"`
	ExpiresAt    string     `json:"expires_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
}

type DeployKey struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Key       string     `json:"key"`
	CanPush   bool       `json:"can_push"`
	CreatedAt *time.Time `json:"created_at"`
}

type TreeNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
	Mode string `json:"mode"`
}

type Environment struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	State       string `json:"state"`
	Tier        string `json:"tier"`
	ExternalURL string `json:"external_url"`
}

type Deployment struct {
	ID          int          `json:"id"`
	IID         int          `json:"iid"`
	Ref         string       `json:"ref"`
	SHA         string       `json:"sha"`
	Status      string       `json:"status"`
	CreatedAt   *time.Time   `json:"created_at"`
	User        *BasicUser   `json:"user"`
	Environment *Environment `json:"environment"`
}

type Runner struct {
	ID          int      `json:"id"`
	Description string   `json:"description"`
	Name        string   `json:"name"`
	Active      bool     `json:"active"`
	Paused      bool     `json:"paused"`
	IsShared    bool     `json:"is_shared"`
	RunnerType  string   `json:"runner_type"`
	Online      bool     `json:"online"`
	Status      string   `json:"status"`
	TagList     []string `json:"tag_list"`
	RunUntagged bool     `json:"run_untagged"`
	Locked      bool     `json:"locked"`
	Version     string   `json:"version"`
}

type Hook struct {
	ID                    int        `json:"id"`
	URL                   string     `json:"url"`
	PushEvents            bool       `json:"push_events"`
	MergeRequestsEvents   bool       `json:"merge_requests_events"`
	PipelineEvents        bool       `json:"pipeline_events"`
	JobEvents             bool       `json:"job_events"`
	DeploymentEvents      bool       `json:"deployment_events"`
	EnableSSLVerification bool       `json:"enable_ssl_verification"`
	CreatedAt             *time.Time `json:"created_at"`
}

type User struct {
	ID              int        `json:"id"`
	Username        string     `json:"username"`
	Name            string     `json:"name"`
	State           string     `json:"state"`
	Bot             bool       `json:"bot"`
	IsAdmin         bool       `json:"is_admin"`
	LastSignInAt    *time.Time `json:"last_sign_in_at"`
	CurrentSignInAt *time.Time `json:"current_sign_in_at"`
	LastActivityOn  string     `json:"last_activity_on"`
}
