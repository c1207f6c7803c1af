package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/slate-tools/slate-shell-go/pkg/errors"
	"github.com/slate-tools/slate-shell-go/pkg/logging"
)

type ExecutionConfig struct {
	ExecutablePath   string   `yaml:"executable_path"`
	Args             []string `yaml:"args,omitempty"`
	Environment      []string `yaml:"environment,omitempty"`
	WorkingDirectory string   `yaml:"working_directory,omitempty"`
}

// Spawn launches the configured executable as a child process in its own
// process group and returns its handle. The caller owns termination of the
// returned process and its tree.
func Spawn(ctx context.Context, execution ExecutionConfig, id string, logger logging.Logger) (*os.Process, error) {
	if ctx == nil {
		logger.Errorf("Context cannot be nil, id: %s", id)
		return nil, errors.NewValidationError("context cannot be nil", nil).WithContext("id", id)
	}

	if err := ValidateExecutionConfig(execution); err != nil {
		logger.Errorf("Execution configuration validation failed, id: %s, error: %v", id, err)
		return nil, errors.NewValidationError("invalid execution configuration", err).WithContext("id", id)
	}

	// Check if the process is executable, and make it executable if it's not
	if err := ensureExecutable(execution.ExecutablePath); err != nil {
		return nil, errors.NewProcessError("failed to ensure process is executable", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
	}

	workDir := execution.WorkingDirectory
	if workDir == "" {
		absPath, err := filepath.Abs(execution.ExecutablePath)
		if err != nil {
			return nil, errors.NewIOError("failed to get absolute path", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
		}
		workDir = filepath.Dir(absPath)
	}

	logger.Debugf("Executing process, id: %s, executable path: '%s', args: %v, working directory: '%s'",
		id, execution.ExecutablePath, execution.Args, workDir)

	env := os.Environ()
	env = append(env, execution.Environment...)

	cmd := exec.CommandContext(ctx, execution.ExecutablePath, execution.Args...)
	cmd.Dir = workDir
	cmd.Env = env

	// Platform-specific setup is handled in attrs_unix.go or attrs_windows.go
	setupProcessAttributes(cmd)

	if err := cmd.Start(); err != nil {
		return nil, errors.NewProcessError("failed to start the process", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
	}

	logger.Infof("Successfully executed process, id: %s, PID: %d", id, cmd.Process.Pid)

	// Reap the child once it exits so a kill does not leave a defunct entry
	go cmd.Wait()

	return cmd.Process, nil
}

// ensureExecutable checks if a file is executable and makes it executable if it's not
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError("file does not exist", err).WithContext("path", path)
	}

	// On Windows, executability is determined by extension
	if runtime.GOOS == "windows" {
		ext := filepath.Ext(path)
		if ext == ".exe" || ext == ".bat" || ext == ".cmd" {
			return nil
		}
		return nil
	}

	mode := info.Mode()
	if mode&0111 != 0 {
		return nil // Already executable
	}

	if err := os.Chmod(path, mode|0111); err != nil {
		return errors.NewIOError("failed to make file executable", err).WithContext("path", path)
	}

	return nil
}
