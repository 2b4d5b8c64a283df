package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds every short-lived control command.
const DefaultTimeout = 5 * time.Second

var (
	sessionNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	windowIDRegex    = regexp.MustCompile(`^(0x[0-9a-fA-F]+|[0-9]+)$`)
)

// Runner executes a short-lived command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// SafeBuilder provides secure command execution with validation
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators:     makeDefaultValidators(),
		executor:       exec,
	}
}

// makeDefaultValidators returns the default set of validators
func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"sessionName": validateSessionName,
		"socketPath":  validateSocketPath,
		"windowID":    validateWindowID,
	}
}

// validateSessionName ensures multiplexer session names are safe to pass as targets
func validateSessionName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	// tmux treats ':' and '.' as target separators
	if !sessionNameRegex.MatchString(name) {
		return fmt.Errorf("invalid session name: %s (must contain only letters, digits, underscores, and hyphens)", name)
	}

	if len(name) > 50 {
		return fmt.Errorf("session name too long: %s (max 50 characters)", name)
	}

	return nil
}

// validateSocketPath ensures control socket paths are absolute and clean
func validateSocketPath(path string) error {
	if path == "" {
		return fmt.Errorf("socket path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("socket path must be absolute: %s", path)
	}

	// Prevent directory traversal
	if strings.Contains(path, "..") {
		return fmt.Errorf("socket path cannot contain '..'")
	}

	// sun_path is 108 bytes on Linux, 104 on macOS
	if len(path) > 100 {
		return fmt.Errorf("socket path too long: %s (max 100 characters)", path)
	}

	return nil
}

// validateWindowID ensures window handles are decimal or hex numbers
func validateWindowID(id string) error {
	if id == "" {
		return fmt.Errorf("window id cannot be empty")
	}

	if !windowIDRegex.MatchString(id) {
		return fmt.Errorf("invalid window id: %s", id)
	}

	return nil
}

// Command represents a safe command configuration
type Command struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	executor Executor
}

// Build creates a new command with validation
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	// Validate command name
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, sb.defaultTimeout)

	return &Command{
		ctx:      timeoutCtx,
		cancel:   cancel,
		name:     name,
		args:     args,
		executor: sb.executor,
	}, nil
}

// Detached creates a command with no timeout for long-lived child processes.
// The caller owns the process lifetime.
func (sb *SafeBuilder) Detached(name string, args ...string) (*exec.Cmd, error) {
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}
	return sb.executor.Command(name, args...), nil
}

// Run builds and executes a short-lived command, returning trimmed-right stdout.
// The error includes stderr when the command fails.
func (sb *SafeBuilder) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd, err := sb.Build(ctx, name, args...)
	if err != nil {
		return "", err
	}
	defer cmd.Release()

	execCmd := cmd.Exec()
	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr
	if err := execCmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Release frees the timeout context. Call it once the command has finished.
func (c *Command) Release() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Exec returns the exec.Cmd bound to the command's timeout context.
func (c *Command) Exec() *exec.Cmd {
	return c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}
