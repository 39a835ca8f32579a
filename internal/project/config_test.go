package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a YAML config to a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
projects:
  myapp:
    owner: acme
    repo: webapp
`)

	_, projects, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	proj, ok := projects["myapp"]
	if !ok {
		t.Fatal("expected project 'myapp' to be loaded")
	}
	if proj.Branch != DefaultBranch {
		t.Errorf("expected default branch %q, got %q", DefaultBranch, proj.Branch)
	}
	if proj.PageSize != DefaultPageSize {
		t.Errorf("expected default page size %d, got %d", DefaultPageSize, proj.PageSize)
	}
	if proj.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected default max retries %d, got %d", DefaultMaxRetries, proj.MaxRetries)
	}
	if proj.HookTimeout != DefaultHookTimeout {
		t.Errorf("expected default hook timeout %d, got %d", DefaultHookTimeout, proj.HookTimeout)
	}
	if proj.CacheTTL != 0 {
		t.Errorf("expected zero cache TTL by default, got %v", proj.CacheTTL)
	}
}

func TestLoadConfig_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
projects:
  myapp:
    owner: acme
    repo: webapp
    branch: release/2023
    page_size: 10
    max_retries: 0
    cache_ttl: 5m
    hook_timeout: 30
`)

	_, projects, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	proj := projects["myapp"]
	if proj.Branch != "release/2023" {
		t.Errorf("unexpected branch: %q", proj.Branch)
	}
	if proj.PageSize != 10 {
		t.Errorf("unexpected page size: %d", proj.PageSize)
	}
	// Zero is a deliberate setting, not an unset value.
	if proj.MaxRetries != 0 {
		t.Errorf("expected max_retries 0 to be honored, got %d", proj.MaxRetries)
	}
	if proj.CacheTTL != 5*time.Minute {
		t.Errorf("unexpected cache TTL: %v", proj.CacheTTL)
	}
	if proj.HookTimeout != 30 {
		t.Errorf("unexpected hook timeout: %d", proj.HookTimeout)
	}
}

func TestLoadConfig_ResolvesTokenFromEnv(t *testing.T) {
	t.Setenv("TEST_DEPLOY_TOKEN", "ghp_from_environment")

	path := writeConfig(t, `
projects:
  myapp:
    owner: acme
    repo: webapp
    token_env: TEST_DEPLOY_TOKEN
`)

	_, projects, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if projects["myapp"].Token != "ghp_from_environment" {
		t.Errorf("expected token from environment, got %q", projects["myapp"].Token)
	}
}

func TestLoadConfig_DirectTokenWinsOverEnv(t *testing.T) {
	t.Setenv("TEST_DEPLOY_TOKEN", "ghp_from_environment")

	path := writeConfig(t, `
projects:
  myapp:
    owner: acme
    repo: webapp
    token: ghp_direct
    token_env: TEST_DEPLOY_TOKEN
`)

	_, projects, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if projects["myapp"].Token != "ghp_direct" {
		t.Errorf("expected direct token to take precedence, got %q", projects["myapp"].Token)
	}
}

func TestLoadConfig_MissingOwnerFails(t *testing.T) {
	path := writeConfig(t, `
projects:
  myapp:
    repo: webapp
`)

	_, _, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for missing owner")
	}
	if !strings.Contains(err.Error(), "missing required 'owner' field") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_InvalidCacheTTLFails(t *testing.T) {
	path := writeConfig(t, `
projects:
  myapp:
    owner: acme
    repo: webapp
    cache_ttl: tomorrow
`)

	_, _, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for unparseable cache_ttl")
	}
	if !strings.Contains(err.Error(), "cache_ttl") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")

	config, projects, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed on empty file: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("expected no projects, got %d", len(projects))
	}
	if config.Projects == nil {
		t.Error("expected initialized Projects map")
	}
}

func TestLoadConfig_MissingFileFails(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateProjectConfig(t *testing.T) {
	retries := 3
	badRetries := -1

	tests := []struct {
		name       string
		project    string
		config     ProjectConfig
		wantErrors int
		wantSubstr string
	}{
		{
			name:       "valid minimal",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp"},
			wantErrors: 0,
		},
		{
			name:       "valid full",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp", Branch: "develop", PageSize: 10, MaxRetries: &retries, WebhookSecret: "a-perfectly-reasonable-secret-over-32-chars"},
			wantErrors: 0,
		},
		{
			name:       "invalid project name",
			project:    "my app",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp"},
			wantErrors: 1,
			wantSubstr: "invalid name",
		},
		{
			name:       "missing repo",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme"},
			wantErrors: 1,
			wantSubstr: "missing required 'repo' field",
		},
		{
			name:       "invalid owner",
			project:    "myapp",
			config:     ProjectConfig{Owner: "-acme", Repo: "webapp"},
			wantErrors: 1,
			wantSubstr: "invalid owner",
		},
		{
			name:       "invalid branch",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp", Branch: "feat;rm -rf"},
			wantErrors: 1,
			wantSubstr: "invalid branch",
		},
		{
			name:       "negative page size",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp", PageSize: -1},
			wantErrors: 1,
			wantSubstr: "page_size",
		},
		{
			name:       "negative max retries",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp", MaxRetries: &badRetries},
			wantErrors: 1,
			wantSubstr: "max_retries",
		},
		{
			name:       "short webhook secret",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp", WebhookSecret: "short"},
			wantErrors: 1,
			wantSubstr: "webhook_secret too short",
		},
		{
			name:       "placeholder webhook secret",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp", WebhookSecret: "changeme"},
			wantErrors: 2,
			wantSubstr: "placeholder",
		},
		{
			name:       "bad on_change entry",
			project:    "myapp",
			config:     ProjectConfig{Owner: "acme", Repo: "webapp", OnChange: []interface{}{42}},
			wantErrors: 1,
			wantSubstr: "on_change[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := ValidateProjectConfig(tt.project, tt.config)
			if len(errors) != tt.wantErrors {
				t.Fatalf("expected %d errors, got %d: %v", tt.wantErrors, len(errors), errors)
			}
			if tt.wantSubstr != "" && !strings.Contains(strings.Join(errors, "\n"), tt.wantSubstr) {
				t.Errorf("expected error containing %q, got %v", tt.wantSubstr, errors)
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	p := &Project{Owner: "acme", Repo: "webapp", Branch: "main"}
	if got := p.CacheKey(); got != "acme/webapp@main" {
		t.Errorf("unexpected cache key: %s", got)
	}
}
