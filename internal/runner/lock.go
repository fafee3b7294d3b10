package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const lockFileName = ".grayforge.lock"

// LockInfo describes the owner of an output directory lock.
type LockInfo struct {
	PID       int       `json:"pid"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}

// Acquire creates a lock file in the output directory so two batches
// never write into it at the same time. If the lock exists and the
// owning PID is dead, the stale lock is reclaimed.
func Acquire(dir, mode string) error {
	lockPath := filepath.Join(dir, lockFileName)

	info := LockInfo{
		PID:       os.Getpid(),
		Mode:      mode,
		StartedAt: time.Now(),
	}

	err := writeLock(lockPath, &info)
	if err == nil {
		return nil
	}

	if !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create lock %s: %w", lockPath, err)
	}

	// lock exists — check if stale
	existing, readErr := ReadLock(dir)
	if readErr != nil {
		return fmt.Errorf("output %s is locked (could not read lock: %v)", dir, readErr)
	}

	if isProcessAlive(existing.PID) {
		return fmt.Errorf("output %s locked by PID %d since %s (%s batch)",
			dir, existing.PID, existing.StartedAt.Format(time.RFC3339), existing.Mode)
	}

	// stale lock — reclaim
	slog.Warn("reclaiming stale lock", "dir", dir, "stale_pid", existing.PID, "mode", existing.Mode)
	if err := os.Remove(lockPath); err != nil {
		return fmt.Errorf("remove stale lock: %w", err)
	}

	if err := writeLock(lockPath, &info); err != nil {
		return fmt.Errorf("acquire after stale removal: %w", err)
	}

	return nil
}

// Release removes the lock file from dir. It is idempotent.
func Release(dir string) {
	lockPath := filepath.Join(dir, lockFileName)
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to release lock", "path", lockPath, "error", err)
	}
}

// ReadLock reads the lock file from dir.
func ReadLock(dir string) (*LockInfo, error) {
	lockPath := filepath.Join(dir, lockFileName)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse lock: %w", err)
	}

	return &info, nil
}

// writeLock atomically creates the lock file using O_CREATE|O_EXCL.
func writeLock(path string, info *LockInfo) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	encErr := json.NewEncoder(f).Encode(info)
	closeErr := f.Close()
	if encErr != nil {
		return encErr
	}
	return closeErr
}

// isProcessAlive checks if a process with the given PID exists and is running.
func isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 checks existence without actually sending a signal
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
