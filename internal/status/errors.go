package status

import (
	"errors"
	"fmt"
)

// ErrDeploymentNotFound is returned when no deployment of the target branch
// exists in any scanned page. It is never cached, so a deployment created
// later is found on the next call.
var ErrDeploymentNotFound = errors.New("no deployment found for target branch")

// FetchError is a single failed call against the remote API. Transient
// failures (timeouts, 5xx, rate limits) are retried by the engine's retry
// policy; permanent failures (auth, not found, malformed request) are not.
type FetchError struct {
	Op         string // "list_deployments" or "get_commit"
	StatusCode int    // 0 when the request never produced an HTTP response
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s fetch error (HTTP %d): %v", e.Op, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s fetch error: %v", e.Op, kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when the retry policy gives up on a transient
// failure. Last carries the error from the final attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// UnavailableError is returned when the commit lookup fails after a
// deployment was already located. Partial results are never cached.
type UnavailableError struct {
	SHA string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("status unavailable: commit lookup for %s failed: %v", e.SHA, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// ConfigError reports missing or invalid configuration. It is raised before
// any network activity.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsTransient reports whether err is a fetch error worth retrying.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Transient
}
