package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// LockFileName is created next to the store
	LockFileName = ".explorer.lock"
	// DefaultStaleTimeout applies to locks taken on another host
	DefaultStaleTimeout = 10 * time.Minute
)

// ErrLockStolen is returned by Release when the lock file now belongs to
// someone else
var ErrLockStolen = errors.New("lock was taken over by another process")

// LockInfo describes the holder of the lock
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	Operation string    `json:"operation,omitempty"`
}

// FileLock serializes edits to the store across processes
type FileLock struct {
	lockPath     string
	staleTimeout time.Duration
	info         *LockInfo
}

// NewFileLock creates a lock in lockDir, creating the directory if needed
func NewFileLock(lockDir string) (*FileLock, error) {
	if lockDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		lockDir = filepath.Join(configDir, "explorer")
	}

	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &FileLock{
		lockPath:     filepath.Join(lockDir, LockFileName),
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// Path returns the lock file location
func (l *FileLock) Path() string {
	return l.lockPath
}

// SetStaleTimeout sets how old a lock from another host must be before it
// is considered abandoned
func (l *FileLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Acquire takes the lock for operation. Re-acquiring a lock this instance
// already holds only updates the operation name.
func (l *FileLock) Acquire(operation string) error {
	if l.info != nil {
		current, err := l.readLockInfo()
		if err == nil && l.ownedBy(current) {
			current.Operation = operation
			if err := l.writeLockInfo(current); err != nil {
				return err
			}
			// keep l.info in step with the file so Release still recognizes it
			l.info.Operation = operation
			return nil
		}
	}

	if holder, err := l.readLockInfo(); err == nil {
		if !l.isStale(holder) {
			return &LockError{Holder: holder, Reason: "another edit is in progress"}
		}
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		Operation: operation,
	}

	// O_EXCL makes creation the point of arbitration between processes
	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			// the winner may not have finished writing its info yet
			holder, _ := l.readLockInfo()
			return &LockError{Holder: holder, Reason: "lock taken during acquisition"}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release gives up the lock. Releasing a lock that is not held is a no-op.
func (l *FileLock) Release() error {
	if l.info == nil {
		return nil
	}

	current, err := l.readLockInfo()
	if err != nil {
		l.info = nil
		return nil
	}

	if !l.ownedBy(current) {
		l.info = nil
		return ErrLockStolen
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.info = nil
	return nil
}

// IsLocked reports whether a live lock exists
func (l *FileLock) IsLocked() bool {
	info, err := l.readLockInfo()
	if err != nil {
		return false
	}
	return !l.isStale(info)
}

// GetHolder returns the current holder of a live lock
func (l *FileLock) GetHolder() (*LockInfo, error) {
	info, err := l.readLockInfo()
	if err != nil {
		return nil, err
	}
	if l.isStale(info) {
		return nil, fmt.Errorf("lock is stale")
	}
	return info, nil
}

// ForceRelease removes the lock file whoever holds it
func (l *FileLock) ForceRelease() error {
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.info = nil
	return nil
}

func (l *FileLock) readLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}

	return &info, nil
}

func (l *FileLock) writeLockInfo(info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.lockPath, data, 0644)
}

// isStale reports whether the holder is gone. On the same host the PID is
// authoritative; across hosts only the timeout is.
func (l *FileLock) isStale(info *LockInfo) bool {
	hostname, _ := os.Hostname()

	if info.Hostname == hostname {
		return !processExists(info.PID)
	}

	return time.Since(info.StartTime) > l.staleTimeout
}

// ownedBy reports whether info was written by this FileLock
func (l *FileLock) ownedBy(info *LockInfo) bool {
	if l.info == nil {
		return false
	}
	hostname, _ := os.Hostname()
	return info.PID == os.Getpid() &&
		info.Hostname == hostname &&
		l.info.StartTime.Equal(info.StartTime) &&
		l.info.Operation == info.Operation
}

// LockError is returned when the lock is held elsewhere
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder == nil {
		return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
	}
	return fmt.Sprintf("cannot acquire lock: %s (%s by PID %d on %s since %s)",
		e.Reason,
		e.Holder.Operation,
		e.Holder.PID,
		e.Holder.Hostname,
		e.Holder.StartTime.Format(time.RFC3339),
	)
}

// IsLockError reports whether err wraps a LockError
func IsLockError(err error) bool {
	var lockErr *LockError
	return errors.As(err, &lockErr)
}
