package history

import "time"

// StatusRecord is one resolved deployment status, as written to the audit
// log. CommitMergedAt and DeployedAt keep the RFC 1123 wire format they are
// served in.
type StatusRecord struct {
	ID              int64     `json:"id"`
	Project         string    `json:"project"`
	Branch          string    `json:"branch"`
	CommitSHA       string    `json:"commit_sha"`
	CommitMsg       string    `json:"commit_msg"`
	CommitMergedAt  string    `json:"commit_merged"`
	DeployedAt      string    `json:"deployed_at"`
	ResolvedAt      time.Time `json:"resolved_at"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
}
