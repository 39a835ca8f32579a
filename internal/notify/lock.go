package notify

import "sync"

// LockManager hands out per-project locks so hooks for the same project
// never run concurrently, while different projects stay independent.
type LockManager struct {
	mu    sync.Mutex             // Protects the locks map
	locks map[string]*sync.Mutex // Per-project locks
}

// NewLockManager creates a new lock manager.
func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

// TryLock attempts to acquire the hook lock for the given project.
// Non-blocking: returns false when a hook run is already in progress.
func (lm *LockManager) TryLock(projectName string) bool {
	lm.mu.Lock()
	lock, exists := lm.locks[projectName]
	if !exists {
		lock = &sync.Mutex{}
		lm.locks[projectName] = lock
	}
	lm.mu.Unlock()

	return lock.TryLock()
}

// Unlock releases the hook lock for the given project.
// Safe to call when no lock exists (no-op).
func (lm *LockManager) Unlock(projectName string) {
	lm.mu.Lock()
	lock := lm.locks[projectName]
	lm.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
