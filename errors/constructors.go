package errors

import (
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *EmbedError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *EmbedError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// MissingDependency reports external programs that could not be found in PATH.
func MissingDependency(names []string) *EmbedError {
	return New(ErrCodeMissingDependency,
		fmt.Sprintf("missing dependency: %s", strings.Join(names, ", "))).
		WithDetail("names", names)
}

// SpawnFailed creates a process creation failure error
func SpawnFailed(program string, err error) *EmbedError {
	return Wrap(err, ErrCodeSpawnFailed, fmt.Sprintf("failed to start %s", program)).
		WithDetail("program", program)
}

// SessionUnavailable creates a transient control channel failure error
func SessionUnavailable(op string, err error) *EmbedError {
	return Wrap(err, ErrCodeSessionUnavailable, fmt.Sprintf("session unavailable during %s", op)).
		WithDetail("op", op)
}

// GeometryDiscovery reports that no embedded child window was found under a container.
func GeometryDiscovery(container uint32) *EmbedError {
	return New(ErrCodeGeometryDiscovery,
		fmt.Sprintf("no child window found under container 0x%x", container)).
		WithDetail("container", container)
}

// ProcessDied reports that the embedded process exited and respawns keep failing.
func ProcessDied(pid int, respawns int) *EmbedError {
	return New(ErrCodeProcessDied,
		fmt.Sprintf("embedded terminal exited (pid %d) and %d respawn attempts did not recover it", pid, respawns)).
		WithDetail("pid", pid).
		WithDetail("respawns", respawns)
}

// DisplayUnavailable creates a window-system connection error
func DisplayUnavailable(err error) *EmbedError {
	return Wrap(err, ErrCodeDisplayUnavailable, "failed to connect to the X display")
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *EmbedError {
	embedErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		embedErr = embedErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return embedErr
}
