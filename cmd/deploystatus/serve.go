package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"deploystatus/internal/history"
	"deploystatus/internal/notify"
	"deploystatus/internal/project"
	"deploystatus/internal/server"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logFile    string
	dbPath     string
	host       string
	port       int
	testMode   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status server",
	Long: `Start the HTTP server exposing deployment status for configured projects.

The server memoizes resolved statuses, records each fresh resolution in the
history database, and accepts GitHub webhooks to invalidate the cache.`,
	RunE: runServe,
}

func init() {
	// Flags for serve command
	serveCmd.Flags().StringVarP(&configFile, "config", "c", getEnvOrDefault("DEPLOYSTATUS_CONFIG_FILE", ""), "Path to projects.yaml configuration file")
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("DEPLOYSTATUS_LOG_FILE", "./deploystatus.log"), "Path to log file")
	serveCmd.Flags().StringVar(&dbPath, "db", getEnvOrDefault("DEPLOYSTATUS_DB_PATH", "./deploystatus.db"), "Path to SQLite database")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("DEPLOYSTATUS_HOST", "127.0.0.1"), "Host to bind to")
	serveCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("DEPLOYSTATUS_PORT", 5000), "Port to listen on")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("DEPLOYSTATUS_TEST_MODE") == "1", "Enable test mode (no rate limiting, no history)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, err := findConfigFile(configFile)
	if err != nil {
		return err
	}

	// Set up logging
	logger, logFileHandle, err := setupLogging(logFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting deploystatus")

	// Load configuration
	logger.Info("Loading configuration", "config", configFile)
	_, projects, err := project.LoadConfig(configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Info("Configuration validated successfully", "count", len(projects))

	// Warn if no projects are configured
	if len(projects) == 0 {
		logger.Warn("No projects configured in config file", "config", configFile)
		logger.Warn("The server will start but won't serve any statuses until projects are added")
	}

	// Create project registry
	registry := project.NewRegistry(projects)

	resolvers, err := buildResolvers(projects)
	if err != nil {
		logger.Error("Failed to build resolvers", "error", err)
		return fmt.Errorf("failed to build resolvers: %w", err)
	}

	// Initialize history database
	var hist *history.History
	if !testMode {
		logger.Info("Initializing history database", "db", dbPath)
		hist, err = history.NewHistory(dbPath)
		if err != nil {
			logger.Error("Failed to initialize history database", "error", err)
			return fmt.Errorf("failed to initialize history database: %w", err)
		}
		defer hist.Close()
	}

	notifier := notify.NewNotifier(logger)

	// Create and start server
	srv := server.NewServer(registry, resolvers, hist, notifier, logger, testMode)

	logger.Info("Starting HTTP server", "host", host, "port", port)
	if err := srv.Start(host, port); err != nil {
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string) (*slog.Logger, *os.File, error) {
	// Create log directory if needed
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	logger := slog.New(handler)

	return logger, file, nil
}
