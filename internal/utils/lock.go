package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// RunLock serializes mutating runs against one SQLite database. The
// scheduler, the dashboard trigger and a manual `evermult run` may all point
// at the same DB; only one of them may mutate at a time.
type RunLock struct {
	lock *flock.Flock
	path string
}

// NewRunLock creates a lock file next to the given database path.
func NewRunLock(dbPath string) (*RunLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, err
	}
	lockPath := absPath + ".lock"
	return &RunLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Acquire takes the lock, waiting if another process holds it.
func (l *RunLock) Acquire() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if locked {
		return nil
	}
	Log.Warn("Another evermult process is running, waiting for it to finish...")
	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
	}
	return nil
}

// Release drops the lock. A missing lock file means we never held it.
func (l *RunLock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the database path, defaulting to the per-user config
// directory.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "evermult", "evermult.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
