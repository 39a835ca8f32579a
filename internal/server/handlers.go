package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"deploystatus/internal/history"
	"deploystatus/internal/notify"
	"deploystatus/internal/project"
	"deploystatus/internal/security"
	"deploystatus/internal/status"

	"github.com/go-chi/chi/v5"
)

const (
	MaxPayloadBytes     = 1_000_000 // 1 MB
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// HandleStatus serves the current deployment status of a project, from the
// memo cache when possible.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	proj, resolver, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	// Cache hit: no remote calls, no history writes.
	if cached, hit := resolver.Cached(); hit {
		s.respondJSON(w, http.StatusOK, cached)
		return
	}

	st, err := s.resolveFresh(r.Context(), proj, resolver)
	if err != nil {
		s.respondResolutionError(w, proj.Name, err)
		return
	}

	s.respondJSON(w, http.StatusOK, st)
}

// HandleRefresh drops the memoized status and resolves fresh.
func (s *Server) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	proj, resolver, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	resolver.Invalidate()

	st, err := s.resolveFresh(r.Context(), proj, resolver)
	if err != nil {
		s.respondResolutionError(w, proj.Name, err)
		return
	}

	s.respondJSON(w, http.StatusOK, st)
}

// HandleHistory serves recent resolutions of a project from the audit log.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	proj, _, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "History not available"})
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxHistoryLimit {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("limit must be between 1 and %d", MaxHistoryLimit)})
			return
		}
		limit = n
	}

	records, err := s.History.GetStatusHistory(r.Context(), proj.Name, limit)
	if err != nil {
		s.Logger.Error("Failed to get status history", "error", err, "project", proj.Name)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch status history"})
		return
	}

	response := map[string]interface{}{
		"project": proj.Name,
		"history": records,
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleOverview serves the latest recorded status of every project.
func (s *Server) HandleOverview(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "History not available"})
		return
	}

	statuses, err := s.History.GetAllProjectsStatus(r.Context())
	if err != nil {
		s.Logger.Error("Failed to get project statuses", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch project statuses"})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"projects": statuses})
}

// HandleWebhook invalidates a project's memoized status when GitHub reports
// deployment activity, so the next read resolves fresh.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	proj, resolver, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	// Webhook delivery is opt-in per project.
	if proj.WebhookSecret == "" {
		s.respondJSON(w, http.StatusForbidden, map[string]string{"error": "Webhook not configured for project"})
		return
	}

	// ContentLength can be -1 if not set, so only reject known-large bodies
	if r.ContentLength > MaxPayloadBytes {
		s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		s.respondJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "Invalid content type"})
		return
	}

	event := r.Header.Get("X-GitHub-Event")
	if event != "push" && event != "deployment" && event != "deployment_status" {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "Ignoring event: " + event})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes))
	if err != nil {
		s.Logger.Error("Failed to read request body", "error", err, "project", proj.Name)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read payload"})
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if !VerifySignature(body, signature, proj.WebhookSecret) {
		s.respondJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid signature"})
		return
	}

	resolver.Invalidate()
	s.Logger.Info("cache invalidated by webhook", "project", proj.Name, "event", event)

	// Respond before re-resolving; GitHub deliveries time out after 10s
	// and the resolution may sit in retry backoff much longer.
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Cache invalidated",
		"project": proj.Name,
	})

	s.hookWg.Add(1)
	go func() {
		defer s.hookWg.Done()
		if _, err := s.resolveFresh(context.Background(), proj, resolver); err != nil {
			s.Logger.Warn("eager re-resolution after webhook failed", "project", proj.Name, "error", err)
		}
	}()
}

// HandleHealth handles health check requests.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":        "ok",
		"projects":      s.Registry.List(),
		"project_count": s.Registry.Count(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// lookupProject resolves the route's project name to a project and its
// resolver, writing the error response itself when that fails.
func (s *Server) lookupProject(w http.ResponseWriter, r *http.Request) (*project.Project, *status.Resolver, bool) {
	projectName := chi.URLParam(r, "projectName")

	if err := security.ValidateProjectName(projectName); err != nil {
		s.Logger.Warn("Invalid project name in request", "project", projectName, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid project name: %v", err)})
		return nil, nil, false
	}

	proj, err := s.Registry.Get(projectName)
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown project"})
		return nil, nil, false
	}

	resolver, exists := s.Resolvers[projectName]
	if !exists {
		s.Logger.Error("No resolver registered for project", "project", projectName)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Project misconfigured"})
		return nil, nil, false
	}

	return proj, resolver, true
}

// resolveFresh performs a full resolution, records it in the history and
// fires change hooks when the deployed commit moved.
func (s *Server) resolveFresh(ctx context.Context, proj *project.Project, resolver *status.Resolver) (*status.Status, error) {
	start := time.Now()

	st, err := resolver.Get(ctx)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start).Seconds()

	if s.History == nil {
		return st, nil
	}

	previous, err := s.History.GetLatestStatus(ctx, proj.Name)
	if err != nil {
		s.Logger.Error("Failed to read latest status from history", "error", err, "project", proj.Name)
	}

	if _, err := s.History.RecordStatus(ctx, &history.StatusRecord{
		Project:         proj.Name,
		Branch:          st.Branch,
		CommitSHA:       st.CommitSHA,
		CommitMsg:       st.CommitMsg,
		CommitMergedAt:  st.CommitMerged,
		DeployedAt:      st.DeployedAt,
		DurationSeconds: &duration,
	}); err != nil {
		s.Logger.Error("Failed to record status in history", "error", err, "project", proj.Name)
	}

	if s.Notifier != nil && (previous == nil || previous.CommitSHA != st.CommitSHA) {
		change := notify.Change{
			Project:    proj.Name,
			Branch:     st.Branch,
			CurrentSHA: st.CommitSHA,
		}
		if previous != nil {
			change.PreviousSHA = previous.CommitSHA
		}

		s.hookWg.Add(1)
		go func() {
			defer s.hookWg.Done()
			if err := s.Notifier.Run(context.Background(), proj, change); err != nil {
				s.Logger.Error("change hooks failed", "project", proj.Name, "error", err)
			}
		}()
	}

	return st, nil
}

// respondResolutionError translates the resolution error taxonomy into
// HTTP responses. Remote-layer failures surface as 502 because this
// service acts as a gateway to the GitHub API.
func (s *Server) respondResolutionError(w http.ResponseWriter, projectName string, err error) {
	s.Logger.Error("resolution failed", "project", projectName, "error", err)

	var cfgErr *status.ConfigError

	switch {
	case errors.Is(err, status.ErrDeploymentNotFound):
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "No deployment found for target branch"})
	case errors.As(err, &cfgErr):
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Project misconfigured"})
	case errors.Is(err, context.DeadlineExceeded):
		s.respondJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "Resolution timed out"})
	default:
		s.respondJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to fetch deployment status from GitHub"})
	}
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
