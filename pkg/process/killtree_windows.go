//go:build windows

package process

import (
	"fmt"
	"os/exec"
	"strconv"
)

// KillTree force-terminates the process and all of its descendants using
// taskkill with the tree (/T) and force (/F) flags.
func KillTree(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}

	cmd := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("taskkill failed for PID %d: %v, output: %s", pid, err, string(output))
	}
	return nil
}
