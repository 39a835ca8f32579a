package project

import "time"

// Project represents a validated repository whose deployment status this
// service tracks.
type Project struct {
	Name          string
	Owner         string
	Repo          string
	Branch        string
	PageSize      int
	MaxRetries    int
	Token         string
	CacheTTL      time.Duration // 0 = cache entries never expire
	WebhookSecret string
	OnChange      []interface{} // Can be string or []string
	HookTimeout   int           // seconds
}

// ProjectConfig represents the YAML configuration for a project.
type ProjectConfig struct {
	Owner         string        `yaml:"owner"`
	Repo          string        `yaml:"repo"`
	Branch        string        `yaml:"branch"`
	PageSize      int           `yaml:"page_size"`
	MaxRetries    *int          `yaml:"max_retries"`
	Token         string        `yaml:"token"`
	TokenEnv      string        `yaml:"token_env"`
	CacheTTL      string        `yaml:"cache_ttl"`
	WebhookSecret string        `yaml:"webhook_secret"`
	OnChange      []interface{} `yaml:"on_change"`
	HookTimeout   int           `yaml:"hook_timeout"`
}

// Config represents the root configuration structure.
type Config struct {
	Projects map[string]ProjectConfig `yaml:"projects"`
}
