package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Safe patterns for validation
	branchPattern  = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)
	projectPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	ownerPattern   = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	repoPattern    = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// ValidateProjectName ensures a project name is safe for use in URLs and
// cache keys.
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("project name cannot start with '-' or '.'")
	}
	if !projectPattern.MatchString(name) {
		return fmt.Errorf("project name contains invalid characters (only a-z, A-Z, 0-9, _, - allowed)")
	}
	return nil
}

// ValidateOwnerName ensures a GitHub owner (user or organization) is safe
// to interpolate into API request paths.
func ValidateOwnerName(owner string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if strings.HasPrefix(owner, "-") || strings.HasSuffix(owner, "-") {
		return fmt.Errorf("owner cannot start or end with '-'")
	}
	if !ownerPattern.MatchString(owner) {
		return fmt.Errorf("owner contains invalid characters")
	}
	return nil
}

// ValidateRepoName ensures a repository name is safe to interpolate into
// API request paths.
func ValidateRepoName(repo string) error {
	if repo == "" {
		return fmt.Errorf("repo cannot be empty")
	}
	if strings.HasPrefix(repo, ".") {
		return fmt.Errorf("repo cannot start with '.'")
	}
	if !repoPattern.MatchString(repo) {
		return fmt.Errorf("repo contains invalid characters")
	}
	return nil
}

// ValidateBranchName ensures a branch name is safe for API requests and
// for passing to hook commands through the environment.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name cannot be empty")
	}
	if strings.HasPrefix(branch, "-") {
		return fmt.Errorf("branch name cannot start with '-'")
	}
	if !branchPattern.MatchString(branch) {
		return fmt.Errorf("branch name contains invalid characters")
	}
	return nil
}
