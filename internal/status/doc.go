// Package status implements the fetch-retry-memoize pipeline at the heart
// of deploystatus.
//
// Engine provides reliable, paginated access to a repository's deployments
// and commits via the GitHub API, with bounded retry on transient failure.
// Resolver drives the engine to locate the newest deployment of a target
// branch, normalizes it into a Status record, and memoizes the result so
// repeat lookups issue no remote calls.
//
// Error taxonomy:
//   - *FetchError: one failed remote call, transient or permanent
//   - *ExhaustedError: transient failures outlived the retry budget
//   - ErrDeploymentNotFound: the branch has no deployment in any page
//   - *UnavailableError: commit lookup failed after a deployment was found
//   - *ConfigError: missing or invalid configuration, raised before I/O
package status
