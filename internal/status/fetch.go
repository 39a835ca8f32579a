package status

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Deployment is the slice of a GitHub deployment object this service cares
// about. Held only during a single resolution pass.
type Deployment struct {
	ID        int64
	Ref       string
	SHA       string
	CreatedAt time.Time
}

// Commit is the slice of a GitHub commit object this service cares about.
type Commit struct {
	SHA         string
	Message     string
	CommittedAt time.Time
}

// Engine performs paginated, retrying reads of the deployments and commits
// resources of a single repository.
type Engine struct {
	client   *github.Client
	owner    string
	repo     string
	pageSize int
	policy   RetryPolicy

	requests atomic.Int64
}

// NewEngine creates an engine for owner/repo. Owner and repo are mandatory;
// their absence is a configuration error raised before any fetch.
func NewEngine(client *github.Client, owner, repo string, pageSize int, policy RetryPolicy) (*Engine, error) {
	if owner == "" {
		return nil, &ConfigError{Field: "owner", Reason: "must not be empty"}
	}
	if repo == "" {
		return nil, &ConfigError{Field: "repo", Reason: "must not be empty"}
	}
	if pageSize < 1 {
		return nil, &ConfigError{Field: "page_size", Reason: "must be at least 1"}
	}
	if policy.MaxRetries < 0 {
		return nil, &ConfigError{Field: "max_retries", Reason: "must not be negative"}
	}

	return &Engine{
		client:   client,
		owner:    owner,
		repo:     repo,
		pageSize: pageSize,
		policy:   policy,
	}, nil
}

// NewGitHubClient creates a GitHub API client. With an empty token the
// client is unauthenticated (60 requests/hour).
func NewGitHubClient(token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return github.NewClient(tc)
}

// ListDeploymentsPage fetches one page of deployments, newest first. Page
// numbering starts at 1.
func (e *Engine) ListDeploymentsPage(ctx context.Context, page int) ([]Deployment, error) {
	var out []Deployment

	err := e.policy.Do(ctx, "list_deployments", func() error {
		e.requests.Add(1)

		opts := &github.DeploymentsListOptions{
			ListOptions: github.ListOptions{
				Page:    page,
				PerPage: e.pageSize,
			},
		}

		deployments, _, err := e.client.Repositories.ListDeployments(ctx, e.owner, e.repo, opts)
		if err != nil {
			return classify("list_deployments", err)
		}

		out = out[:0]
		for _, d := range deployments {
			out = append(out, Deployment{
				ID:        d.GetID(),
				Ref:       d.GetRef(),
				SHA:       d.GetSHA(),
				CreatedAt: d.GetCreatedAt().Time,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// GetCommit fetches commit metadata for a SHA.
func (e *Engine) GetCommit(ctx context.Context, sha string) (Commit, error) {
	var out Commit

	err := e.policy.Do(ctx, "get_commit", func() error {
		e.requests.Add(1)

		rc, _, err := e.client.Repositories.GetCommit(ctx, e.owner, e.repo, sha, nil)
		if err != nil {
			return classify("get_commit", err)
		}

		out = Commit{
			SHA:         rc.GetSHA(),
			Message:     rc.GetCommit().GetMessage(),
			CommittedAt: rc.GetCommit().GetCommitter().GetDate().Time,
		}
		return nil
	})
	if err != nil {
		return Commit{}, err
	}

	return out, nil
}

// Requests returns the number of API calls issued so far, retries included.
func (e *Engine) Requests() int64 {
	return e.requests.Load()
}

// classify maps a go-github error onto the fetch error taxonomy. Rate
// limits, 408/429 and 5xx are transient; every other HTTP error is
// permanent. Errors without an HTTP response (DNS, timeouts, connection
// resets) are transient.
func classify(op string, err error) *FetchError {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &FetchError{Op: op, StatusCode: http.StatusForbidden, Transient: true, Err: err}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &FetchError{Op: op, StatusCode: http.StatusForbidden, Transient: true, Err: err}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		transient := code == http.StatusRequestTimeout ||
			code == http.StatusTooManyRequests ||
			code >= 500
		return &FetchError{Op: op, StatusCode: code, Transient: transient, Err: err}
	}

	return &FetchError{Op: op, Transient: true, Err: err}
}
