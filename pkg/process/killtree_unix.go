//go:build !windows

package process

import (
	"fmt"
	"syscall"
)

// KillTree force-terminates the process and all of its descendants.
// Processes are spawned with Setpgid, so the group id equals the child's
// pid and SIGKILL to -pid reaches the whole tree.
func KillTree(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}

	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		// Already gone
		return nil
	}
	if err != nil {
		// The process may not lead its own group (e.g. an attached zombie
		// from a previous run); fall back to killing the single pid.
		fallbackErr := syscall.Kill(pid, syscall.SIGKILL)
		if fallbackErr == syscall.ESRCH {
			return nil
		}
		if fallbackErr != nil {
			return fmt.Errorf("failed to kill process tree for PID %d: %v", pid, fallbackErr)
		}
	}
	return nil
}
