package status

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// maxPages caps a pagination scan in case the remote never returns a short
// page. The natural stop condition is a page shorter than the page size.
const maxPages = 100

// Status is the normalized answer to "what is currently deployed?".
// Immutable once constructed; timestamps are RFC 1123 strings in UTC.
type Status struct {
	Branch       string `json:"branch"`
	CommitMerged string `json:"commit_merged"`
	CommitMsg    string `json:"commit_msg"`
	CommitSHA    string `json:"commit_sha"`
	DeployedAt   string `json:"deployed_at"`
}

// Resolver locates the newest deployment of the target branch and memoizes
// the normalized result. The cache is injected so callers can share one
// store across resolvers or isolate them in tests.
type Resolver struct {
	engine *Engine
	branch string
	cache  *gocache.Cache
	ttl    time.Duration
	key    string
}

// NewResolver creates a resolver for the engine's repository and the given
// branch. A zero ttl means cached results never expire; they are replaced
// only through Invalidate.
func NewResolver(engine *Engine, branch string, cache *gocache.Cache, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Resolver{
		engine: engine,
		branch: branch,
		cache:  cache,
		ttl:    ttl,
		key:    fmt.Sprintf("%s/%s@%s", engine.owner, engine.repo, branch),
	}
}

// Get returns the status of the newest deployment of the target branch,
// serving from the memo cache when possible. Errors are never cached.
func (r *Resolver) Get(ctx context.Context) (*Status, error) {
	if st, ok := r.Cached(); ok {
		return st, nil
	}

	dep, err := r.findDeployment(ctx)
	if err != nil {
		return nil, err
	}

	commit, err := r.engine.GetCommit(ctx, dep.SHA)
	if err != nil {
		return nil, &UnavailableError{SHA: dep.SHA, Err: err}
	}

	st := &Status{
		Branch:       dep.Ref,
		CommitMerged: formatUTC(commit.CommittedAt),
		CommitMsg:    commit.Message,
		CommitSHA:    dep.SHA,
		DeployedAt:   formatUTC(dep.CreatedAt),
	}

	r.cache.Set(r.key, st, r.ttl)
	return st, nil
}

// findDeployment scans pages newest-first until the branch matches. Pages
// are ordered by the API, so the first match is the newest deployment; a
// short or empty page means there is nothing left to scan.
func (r *Resolver) findDeployment(ctx context.Context) (Deployment, error) {
	for page := 1; page <= maxPages; page++ {
		deployments, err := r.engine.ListDeploymentsPage(ctx, page)
		if err != nil {
			return Deployment{}, err
		}

		for _, d := range deployments {
			if d.Ref == r.branch {
				return d, nil
			}
		}

		if len(deployments) < r.engine.pageSize {
			return Deployment{}, ErrDeploymentNotFound
		}
	}

	return Deployment{}, fmt.Errorf("scanned %d pages: %w", maxPages, ErrDeploymentNotFound)
}

// Cached returns the memoized status without touching the network.
func (r *Resolver) Cached() (*Status, bool) {
	v, ok := r.cache.Get(r.key)
	if !ok {
		return nil, false
	}
	return v.(*Status), true
}

// Invalidate drops the memoized status so the next Get resolves fresh.
func (r *Resolver) Invalidate() {
	r.cache.Delete(r.key)
}

// Branch returns the branch this resolver tracks.
func (r *Resolver) Branch() string {
	return r.branch
}

func formatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC1123)
}
