//go:build !windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

const (
	killTimeout  = 5 * time.Second
	pollInterval = 100 * time.Millisecond
)

// isProcessRunning probes the pid with signal 0.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Kill asks the process behind pid to shut down with SIGTERM and waits for
// it to exit. A process that ignores the request past the grace period gets
// SIGKILL.
func Kill(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		return fmt.Errorf("not running (pid %d): %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send SIGTERM: %w", err)
	}

	deadline := time.Now().Add(killTimeout)
	for time.Now().Before(deadline) {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			return nil
		}
		time.Sleep(pollInterval)
	}

	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("send SIGKILL: %w", err)
	}
	time.Sleep(500 * time.Millisecond)
	return nil
}
