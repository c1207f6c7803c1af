//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes configures Windows-specific process attributes.
// CREATE_NEW_PROCESS_GROUP isolates the child and its descendants so that
// taskkill /T can terminate the tree without touching the shell itself.
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
