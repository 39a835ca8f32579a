// Package server implements the HTTP surface of deploystatus.
//
// This package provides:
//   - GET /status/{project}: the current deployment status, memoized
//   - POST /status/{project}/refresh: drop the memo and resolve fresh
//   - GET /history: latest recorded status of every project
//   - GET /history/{project}: recent resolutions from the audit log
//   - POST /in/{project}: GitHub webhook receiver that invalidates the memo
//   - GET /healthz: liveness and configured projects
//
// The server integrates with other packages:
//   - internal/status: the fetch-retry-memoize resolution core
//   - internal/project: project configuration and validation
//   - internal/history: SQLite audit log of resolved statuses
//   - internal/notify: on_change hook execution
//
// Security features:
//   - HMAC-SHA256 webhook signature verification
//   - Content-Type validation (application/json only)
//   - Payload size limits (1MB max)
//   - Per-IP rate limiting (global and webhook-specific)
package server
