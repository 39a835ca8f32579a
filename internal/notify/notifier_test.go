package notify

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"deploystatus/internal/project"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestNotifier_NoHooksIsNoop(t *testing.T) {
	n := NewNotifier(testLogger())

	proj := &project.Project{Name: "myapp", HookTimeout: 5}
	err := n.Run(context.Background(), proj, Change{Project: "myapp", CurrentSHA: "abc"})
	if err != nil {
		t.Fatalf("expected no-op for empty hook list, got %v", err)
	}
}

func TestNotifier_RunsConfiguredHook(t *testing.T) {
	n := NewNotifier(testLogger())

	// touch is in the hook allow-list and leaves observable state behind.
	marker := filepath.Join(t.TempDir(), "notified")
	proj := &project.Project{
		Name:        "myapp",
		Branch:      "main",
		HookTimeout: 10,
		OnChange:    []interface{}{[]interface{}{"touch", marker}},
	}

	err := n.Run(context.Background(), proj, Change{
		Project:     "myapp",
		Branch:      "main",
		PreviousSHA: "old",
		CurrentSHA:  "new",
	})
	if err != nil {
		t.Fatalf("hook run failed: %v", err)
	}

	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected hook to create %s: %v", marker, err)
	}
}

func TestNotifier_DisallowedHookFails(t *testing.T) {
	n := NewNotifier(testLogger())

	proj := &project.Project{
		Name:        "myapp",
		HookTimeout: 5,
		OnChange:    []interface{}{"rm -rf /tmp/nope"},
	}

	err := n.Run(context.Background(), proj, Change{Project: "myapp", CurrentSHA: "abc"})
	if err == nil {
		t.Fatal("expected disallowed hook command to fail")
	}
}

func TestNotifier_BadCommandSyntaxFails(t *testing.T) {
	n := NewNotifier(testLogger())

	proj := &project.Project{
		Name:        "myapp",
		HookTimeout: 5,
		OnChange:    []interface{}{42},
	}

	err := n.Run(context.Background(), proj, Change{Project: "myapp", CurrentSHA: "abc"})
	if err == nil {
		t.Fatal("expected unparseable hook command to fail")
	}
}

func TestLockManager_TryLock(t *testing.T) {
	lm := NewLockManager()

	if !lm.TryLock("app1") {
		t.Fatal("first TryLock should succeed")
	}
	if lm.TryLock("app1") {
		t.Error("second TryLock on same project should fail")
	}
	if !lm.TryLock("app2") {
		t.Error("TryLock on a different project should succeed")
	}

	lm.Unlock("app1")
	if !lm.TryLock("app1") {
		t.Error("TryLock after Unlock should succeed")
	}

	// Unlocking an unknown project is a no-op.
	lm.Unlock("never-locked")
}
