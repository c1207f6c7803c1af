package process

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slate-tools/slate-shell-go/pkg/errors"
)

func writeTestExecutable(t *testing.T) string {
	dir := t.TempDir()
	name := "slate-server"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755))
	return path
}

func TestValidateExecutionConfig_Valid(t *testing.T) {
	config := ExecutionConfig{
		ExecutablePath: writeTestExecutable(t),
		Args:           []string{"--port", "8000"},
		Environment:    []string{"SLATE_OWNER=tauri", "SLATE_ENV=prod"},
	}
	assert.NoError(t, ValidateExecutionConfig(config))
}

func TestValidateExecutionConfig_MissingPath(t *testing.T) {
	err := ValidateExecutionConfig(ExecutionConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestValidateExecutionConfig_ExecutableNotFound(t *testing.T) {
	config := ExecutionConfig{
		ExecutablePath: filepath.Join(t.TempDir(), "missing-server"),
	}
	err := ValidateExecutionConfig(config)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestValidateExecutionConfig_RelativeWorkingDirectory(t *testing.T) {
	config := ExecutionConfig{
		ExecutablePath:   writeTestExecutable(t),
		WorkingDirectory: "relative/dir",
	}
	err := ValidateExecutionConfig(config)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestValidateExecutionConfig_BadEnvironmentEntry(t *testing.T) {
	config := ExecutionConfig{
		ExecutablePath: writeTestExecutable(t),
		Environment:    []string{"NO_EQUALS_SIGN"},
	}
	err := ValidateExecutionConfig(config)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
