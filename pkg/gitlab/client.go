package gitlab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"k8s.io/apimachinery/pkg/util/json"
)

// maxPages bounds every paginated listing.
const maxPages = 20

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gitlab: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// transient reports whether retrying the same request may succeed.
func (e *APIError) transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Options struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
	MaxRetries     uint64
	RateLimit      float64
	PerPage        int
	HTTPClient     *http.Client
	// first retry delay, defaults to the backoff package default
	RetryInterval time.Duration
}

// RESTClient implements Client on the GitLab v4 REST API.
type RESTClient struct {
	base       *url.URL
	token      string
	timeout    time.Duration
	retries    uint64
	interval   time.Duration
	perPage    int
	httpClient *http.Client
	limiter    *RateLimiter
}

var _ Client = (*RESTClient)(nil)

func NewClient(opts Options) (*RESTClient, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid gitlab url %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid gitlab url %q", opts.BaseURL)
	}

	c := &RESTClient{
		base:       base,
		token:      opts.Token,
		timeout:    opts.RequestTimeout,
		retries:    opts.MaxRetries,
		interval:   opts.RetryInterval,
		perPage:    opts.PerPage,
		httpClient: opts.HTTPClient,
		limiter:    NewRateLimiter(opts.RateLimit, 1),
	}

	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.perPage <= 0 {
		c.perPage = 100
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}

	return c, nil
}

type response struct {
	body   []byte
	header http.Header
}

func (c *RESTClient) endpoint(path string, query url.Values) string {
	u := c.base.String() + "/api/v4" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get performs one request with rate limiting, a per-attempt timeout and
// bounded exponential retries on network errors, 429 and 5xx.
func (c *RESTClient) get(ctx context.Context, path string, query url.Values) (*response, error) {
	var res *response

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint(path, query), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.token != "" {
			req.Header.Set("PRIVATE-TOKEN", c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Path: path, Message: strings.TrimSpace(string(data))}
			if apiErr.transient() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		res = &response{body: data, header: resp.Header}
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	if c.interval > 0 {
		expBackoff.InitialInterval = c.interval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(expBackoff, c.retries), ctx)

	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *RESTClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	res, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// list walks X-Next-Page until exhausted or maxPages is reached.
func list[T any](ctx context.Context, c *RESTClient, path string, query url.Values) ([]T, error) {
	items := []T{}

	if query == nil {
		query = url.Values{}
	}
	query.Set("per_page", strconv.Itoa(c.perPage))

	page := "1"
	for i := 0; i < maxPages && page != ""; i++ {
		query.Set("page", page)

		res, err := c.get(ctx, path, query)
		if err != nil {
			return nil, err
		}

		var chunk []T
		if err := json.Unmarshal(res.body, &chunk); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		items = append(items, chunk...)

		page = res.header.Get("X-Next-Page")
	}

	return items, nil
}

func projectPath(projectID int, suffix string) string {
	return fmt.Sprintf("/projects/%d%s", projectID, suffix)
}

func (c *RESTClient) GetProtectedBranches(ctx context.Context, projectID int) ([]ProtectedBranch, error) {
	return list[ProtectedBranch](ctx, c, projectPath(projectID, "/protected_branches"), nil)
}

func (c *RESTClient) GetBranches(ctx context.Context, projectID int) ([]Branch, error) {
	return list[Branch](ctx, c, projectPath(projectID, "/repository/branches"), nil)
}

func (c *RESTClient) GetMergeRequests(ctx context.Context, projectID int, state string) ([]MergeRequest, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	return list[MergeRequest](ctx, c, projectPath(projectID, "/merge_requests"), q)
}

// GetProjectPipelines lists pipelines newest first.
func (c *RESTClient) GetProjectPipelines(ctx context.Context, projectID int) ([]Pipeline, error) {
	q := url.Values{}
	q.Set("order_by", "id")
	q.Set("sort", "desc")
	return list[Pipeline](ctx, c, projectPath(projectID, "/pipelines"), q)
}

func (c *RESTClient) GetPipelineJobs(ctx context.Context, projectID, pipelineID int) ([]Job, error) {
	return list[Job](ctx, c, projectPath(projectID, fmt.Sprintf("/pipelines/%d/jobs", pipelineID)), nil)
}

// GetRawFile reads a file from the default branch.
func (c *RESTClient) GetRawFile(ctx context.Context, projectID int, path string) (string, error) {
	res, err := c.get(ctx, projectPath(projectID, "/repository/files/"+url.PathEscape(path)+"/raw"), nil)
	if err != nil {
		return "", err
	}
	return string(res.body), nil
}

func (c *RESTClient) GetGitlabCIFile(ctx context.Context, projectID int) (string, error) {
	return c.GetRawFile(ctx, projectID, ".gitlab-ci.yml")
}

func (c *RESTClient) GetProjectDetails(ctx context.Context, projectID int) (*Project, error) {
	p := &Project{}
	if err := c.getJSON(ctx, projectPath(projectID, ""), nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *RESTClient) GetProjectVariables(ctx context.Context, projectID int) ([]Variable, error) {
	return list[Variable](ctx, c, projectPath(projectID, "/variables"), nil)
}

// GetProjectMembers includes members inherited from parent groups.
func (c *RESTClient) GetProjectMembers(ctx context.Context, projectID int) ([]Member, error) {
	return list[Member](ctx, c, projectPath(projectID, "/members/all"), nil)
}

func (c *RESTClient) GetDeployKeys(ctx context.Context, projectID int) ([]DeployKey, error) {
	return list[DeployKey](ctx, c, projectPath(projectID, "/deploy_keys"), nil)
}

func (c *RESTClient) GetRepositoryTree(ctx context.Context, projectID int, recursive bool) ([]TreeNode, error) {
	q := url.Values{}
	q.Set("recursive", strconv.FormatBool(recursive))
	return list[TreeNode](ctx, c, projectPath(projectID, "/repository/tree"), q)
}

func (c *RESTClient) GetProjectEnvironments(ctx context.Context, projectID int) ([]Environment, error) {
	return list[Environment](ctx, c, projectPath(projectID, "/environments"), nil)
}

func (c *RESTClient) GetProjectDeployments(ctx context.Context, projectID int) ([]Deployment, error) {
	q := url.Values{}
	q.Set("order_by", "id")
	q.Set("sort", "desc")
	return list[Deployment](ctx, c, projectPath(projectID, "/deployments"), q)
}

// GetProjectRunners lists the runners and enriches each with its details,
// the listing endpoint omits tags and version.
func (c *RESTClient) GetProjectRunners(ctx context.Context, projectID int) ([]Runner, error) {
	runners, err := list[Runner](ctx, c, projectPath(projectID, "/runners"), nil)
	if err != nil {
		return nil, err
	}

	for i := range runners {
		detail := Runner{}
		if err := c.getJSON(ctx, fmt.Sprintf("/runners/%d", runners[i].ID), nil, &detail); err != nil {
			continue
		}
		runners[i].TagList = detail.TagList
		runners[i].RunUntagged = detail.RunUntagged
		runners[i].Locked = detail.Locked
		runners[i].Version = detail.Version
	}

	return runners, nil
}

func (c *RESTClient) GetProjectHooks(ctx context.Context, projectID int) ([]Hook, error) {
	return list[Hook](ctx, c, projectPath(projectID, "/hooks"), nil)
}

func (c *RESTClient) GetAllUsers(ctx context.Context) ([]User, error) {
	return list[User](ctx, c, "/users", nil)
}

func (c *RESTClient) GetJobArtifactFile(ctx context.Context, projectID, jobID int, path string) ([]byte, error) {
	res, err := c.get(ctx, projectPath(projectID, fmt.Sprintf("/jobs/%d/artifacts/%s", jobID, strings.TrimLeft(path, "/"))), nil)
	if err != nil {
		return nil, err
	}
	return res.body, nil
}

func (c *RESTClient) GetCloneURL(ctx context.Context, projectID int) (string, error) {
	p, err := c.GetProjectDetails(ctx, projectID)
	if err != nil {
		return "", err
	}
	if p.HTTPURLToRepo == "" {
		return "", errors.New("project has no http clone url")
	}

	u, err := url.Parse(p.HTTPURLToRepo)
	if err != nil {
		return "", fmt.Errorf("invalid clone url: %w", err)
	}
	if c.token != "" {
		u.User = url.UserPassword("oauth2", c.token)
	}

	return u.String(), nil
}
