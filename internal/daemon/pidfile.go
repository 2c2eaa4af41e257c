package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PIDFileName is the name of the watcher PID file inside the data directory
const PIDFileName = "watch.pid"

var (
	// ErrAlreadyRunning is returned when another watcher holds the PID file
	ErrAlreadyRunning = errors.New("watcher is already running")
	// ErrNotRunning is returned when no watcher PID file exists
	ErrNotRunning = errors.New("watcher is not running")
)

// PIDFile records the process ID of a running watcher
type PIDFile struct {
	path string
}

// NewPIDFile creates a new PID file manager
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// PIDPath returns the watcher PID file path inside dataDir, creating the
// directory if needed
func PIDPath(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dataDir, PIDFileName), nil
}

// Path returns the PID file path
func (p *PIDFile) Path() string {
	return p.path
}

// Write records the current process ID. A PID file left by a process
// that is no longer running is replaced.
func (p *PIDFile) Write() error {
	if _, err := os.Stat(p.path); err == nil {
		if running, _ := p.IsRunning(); running {
			return fmt.Errorf("%w (PID file: %s)", ErrAlreadyRunning, p.path)
		}
		os.Remove(p.path)
	}

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w (PID file: %s)", ErrAlreadyRunning, p.path)
		}
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Read reads the PID from the PID file
func (p *PIDFile) Read() (int, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %q", pidStr)
	}

	return pid, nil
}

// Remove removes the PID file
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning checks if the process in the PID file is running
func (p *PIDFile) IsRunning() (bool, error) {
	pid, err := p.Read()
	if err != nil {
		return false, err
	}

	return isProcessRunning(pid), nil
}

// Kill asks the watcher in the PID file to shut down
func (p *PIDFile) Kill() error {
	pid, err := p.Read()
	if err != nil {
		return err
	}
	if !isProcessRunning(pid) {
		return ErrNotRunning
	}

	return killProcess(pid)
}
