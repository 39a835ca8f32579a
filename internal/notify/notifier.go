package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"deploystatus/internal/project"
	"deploystatus/internal/security"
	"deploystatus/pkg/cmdutil"
)

// Change describes a deployed-commit transition observed during resolution.
type Change struct {
	Project     string
	Branch      string
	PreviousSHA string // empty on the first ever resolution
	CurrentSHA  string
}

// Notifier runs a project's on_change commands when the deployed commit
// moves. Commands run without a shell through a sandboxed executor; the
// change details are passed in the environment.
type Notifier struct {
	locks  *LockManager
	logger *slog.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		locks:  NewLockManager(),
		logger: logger,
	}
}

// Run executes the project's on_change commands for the given change.
// Returns immediately when no hooks are configured or when a hook run for
// the project is already in progress.
func (n *Notifier) Run(ctx context.Context, proj *project.Project, change Change) error {
	if len(proj.OnChange) == 0 {
		return nil
	}

	if !n.locks.TryLock(proj.Name) {
		n.logger.Warn("hook run already in progress, skipping", "project", proj.Name)
		return nil
	}
	defer n.locks.Unlock(proj.Name)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(proj.HookTimeout)*time.Second)
	defer cancel()

	executor := security.NewSandboxedExecutor("")
	executor.Env = hookEnv(change)

	for i, cmdInterface := range proj.OnChange {
		cmd, err := cmdutil.ParseCommandList(cmdInterface)
		if err != nil {
			return fmt.Errorf("failed to parse on_change command %d: %w", i, err)
		}

		start := time.Now()
		output, err := executor.Execute(ctx, cmd)
		if err != nil {
			n.logger.Error("hook command failed",
				"project", proj.Name,
				"command", cmdutil.FormatCommand(cmd),
				"error", err,
				"output", string(cmdutil.SanitizeOutput(output, []string{proj.Token, proj.WebhookSecret})))
			return fmt.Errorf("on_change command %d failed: %w (command: %s)",
				i, err, cmdutil.FormatCommand(cmd))
		}

		n.logger.Info("hook command completed",
			"project", proj.Name,
			"command", cmdutil.FormatCommand(cmd),
			"duration_ms", time.Since(start).Milliseconds())
	}

	return nil
}

// hookEnv builds the environment for hook commands. Hooks get the change
// details plus the parent environment, so PATH and friends still resolve.
func hookEnv(change Change) []string {
	return append(os.Environ(),
		"DEPLOYSTATUS_PROJECT="+change.Project,
		"DEPLOYSTATUS_BRANCH="+change.Branch,
		"DEPLOYSTATUS_PREVIOUS_SHA="+change.PreviousSHA,
		"DEPLOYSTATUS_SHA="+change.CurrentSHA,
	)
}
