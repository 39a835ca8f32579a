package project

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"deploystatus/internal/security"
)

const (
	DefaultBranch      = "main"
	DefaultPageSize    = 5
	DefaultMaxRetries  = 3
	DefaultHookTimeout = 60

	MinWebhookSecretLength = 32
)

var ForbiddenSecrets = map[string]bool{
	"replace-with-secret": true,
	"topsecret":           true,
	"secret":              true,
	"password":            true,
	"changeme":            true,
}

// LoadConfig loads and validates the configuration from a YAML file.
// Tokens referenced via token_env are resolved from the environment here,
// so the rest of the process never touches env vars.
func LoadConfig(configPath string) (*Config, map[string]*Project, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Initialize Projects map if it's nil (happens with empty YAML files)
	if config.Projects == nil {
		config.Projects = make(map[string]ProjectConfig)
	}

	projects := make(map[string]*Project)
	for name, projectConfig := range config.Projects {
		errors := ValidateProjectConfig(name, projectConfig)
		if len(errors) > 0 {
			return nil, nil, fmt.Errorf("invalid configuration for project '%s':\n%s",
				name, strings.Join(errors, "\n"))
		}

		// Apply defaults
		branch := projectConfig.Branch
		if branch == "" {
			branch = DefaultBranch
		}

		pageSize := projectConfig.PageSize
		if pageSize == 0 {
			pageSize = DefaultPageSize
		}

		maxRetries := DefaultMaxRetries
		if projectConfig.MaxRetries != nil {
			maxRetries = *projectConfig.MaxRetries
		}

		hookTimeout := projectConfig.HookTimeout
		if hookTimeout == 0 {
			hookTimeout = DefaultHookTimeout
		}

		onChange := projectConfig.OnChange
		if onChange == nil {
			onChange = []interface{}{}
		}

		token := projectConfig.Token
		if token == "" && projectConfig.TokenEnv != "" {
			token = os.Getenv(projectConfig.TokenEnv)
		}

		var cacheTTL time.Duration
		if projectConfig.CacheTTL != "" {
			cacheTTL, err = time.ParseDuration(projectConfig.CacheTTL)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid cache_ttl for project '%s': %w", name, err)
			}
		}

		projects[name] = &Project{
			Name:          name,
			Owner:         projectConfig.Owner,
			Repo:          projectConfig.Repo,
			Branch:        branch,
			PageSize:      pageSize,
			MaxRetries:    maxRetries,
			Token:         token,
			CacheTTL:      cacheTTL,
			WebhookSecret: projectConfig.WebhookSecret,
			OnChange:      onChange,
			HookTimeout:   hookTimeout,
		}
	}

	return &config, projects, nil
}

// ValidateProjectConfig validates a single project configuration.
func ValidateProjectConfig(name string, config ProjectConfig) []string {
	var errors []string

	if err := security.ValidateProjectName(name); err != nil {
		errors = append(errors, fmt.Sprintf("  - Project '%s': invalid name: %v", name, err))
	}

	// Owner and repo are mandatory; nothing can be fetched without them.
	if config.Owner == "" {
		errors = append(errors, fmt.Sprintf("  - Project '%s': missing required 'owner' field", name))
	} else if err := security.ValidateOwnerName(config.Owner); err != nil {
		errors = append(errors, fmt.Sprintf("  - Project '%s': invalid owner: %v", name, err))
	}

	if config.Repo == "" {
		errors = append(errors, fmt.Sprintf("  - Project '%s': missing required 'repo' field", name))
	} else if err := security.ValidateRepoName(config.Repo); err != nil {
		errors = append(errors, fmt.Sprintf("  - Project '%s': invalid repo: %v", name, err))
	}

	branch := config.Branch
	if branch == "" {
		branch = DefaultBranch
	}
	if err := security.ValidateBranchName(branch); err != nil {
		errors = append(errors, fmt.Sprintf("  - Project '%s': invalid branch: %v", name, err))
	}

	if config.PageSize < 0 {
		errors = append(errors, fmt.Sprintf("  - Project '%s': page_size must be a positive integer, got %d", name, config.PageSize))
	}

	if config.MaxRetries != nil && *config.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("  - Project '%s': max_retries must not be negative, got %d", name, *config.MaxRetries))
	}

	if config.HookTimeout < 0 {
		errors = append(errors, fmt.Sprintf("  - Project '%s': hook_timeout must be a positive integer, got %d", name, config.HookTimeout))
	}

	// The webhook endpoint is opt-in; when a secret is set it must be a
	// real one.
	if config.WebhookSecret != "" {
		if len(config.WebhookSecret) < MinWebhookSecretLength {
			errors = append(errors, fmt.Sprintf("  - Project '%s': webhook_secret too short (minimum %d characters)", name, MinWebhookSecretLength))
		}
		if ForbiddenSecrets[strings.ToLower(config.WebhookSecret)] {
			errors = append(errors, fmt.Sprintf("  - Project '%s': webhook_secret appears to be a placeholder value, replace with real secret", name))
		}
	}

	if config.OnChange != nil {
		for i, cmd := range config.OnChange {
			switch cmd.(type) {
			case string:
				// Valid
			case []interface{}:
				// Valid - list of command parts
			default:
				errors = append(errors, fmt.Sprintf("  - Project '%s': on_change[%d] must be a string or list, got %T", name, i, cmd))
			}
		}
	}

	return errors
}

// CacheKey returns the memoization key for this project's configuration.
func (p *Project) CacheKey() string {
	return fmt.Sprintf("%s/%s@%s", p.Owner, p.Repo, p.Branch)
}
