package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"deploystatus/internal/history"
	"deploystatus/internal/notify"
	"deploystatus/internal/project"
	"deploystatus/internal/status"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 30 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware. A full resolution can spend a while
	// inside retry backoff, so this is generous.
	RequestTimeout = 60 * time.Second

	// Rate limiting - requests per minute
	GlobalRateLimit  = 60
	WebhookRateLimit = 10
)

// Server represents the HTTP server.
type Server struct {
	Registry  *project.Registry
	Resolvers map[string]*status.Resolver
	History   *history.History
	Notifier  *notify.Notifier
	Logger    *slog.Logger
	TestMode  bool
	hookWg    sync.WaitGroup // Tracks in-flight async hook runs
}

// NewServer creates a new server instance. Resolvers must contain one
// entry per registered project.
func NewServer(registry *project.Registry, resolvers map[string]*status.Resolver, hist *history.History, notifier *notify.Notifier, logger *slog.Logger, testMode bool) *Server {
	return &Server{
		Registry:  registry,
		Resolvers: resolvers,
		History:   hist,
		Notifier:  notifier,
		Logger:    logger,
		TestMode:  testMode,
	}
}

// Router creates and configures the HTTP router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	// Rate limiting middleware (only if not in test mode)
	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.Logger))
	}

	// Routes
	r.Get("/healthz", s.HandleHealth)
	r.Get("/status/{projectName}", s.HandleStatus)
	r.Post("/status/{projectName}/refresh", s.HandleRefresh)
	r.Get("/history", s.HandleOverview)
	r.Get("/history/{projectName}", s.HandleHistory)

	// Webhook route with stricter rate limit
	if !s.TestMode {
		r.With(NewWebhookRateLimitMiddleware(WebhookRateLimit, s.Logger)).Post("/in/{projectName}", s.HandleWebhook)
	} else {
		r.Post("/in/{projectName}", s.HandleWebhook)
	}

	return r
}

// Start starts the HTTP server.
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return server.ListenAndServe()
}

// WaitForHooks waits for all in-flight async hook runs to complete.
// This is primarily useful for testing.
func (s *Server) WaitForHooks() {
	s.hookWg.Wait()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	// Wait for in-flight hook runs
	s.hookWg.Wait()

	// Close history database connection
	if s.History != nil {
		return s.History.Close()
	}
	return nil
}
