package tmux

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grovetools/embedterm/command"
	"github.com/grovetools/embedterm/errors"
)

// Client issues control commands to a tmux server listening on a private socket path.
type Client struct {
	runner command.Runner
	binary string
	socket string // absolute socket path, passed with -S
}

// NewClient creates a client for the server at socketPath. An empty binary means "tmux".
func NewClient(runner command.Runner, binary, socketPath string) *Client {
	if binary == "" {
		binary = "tmux"
	}
	return &Client{
		runner: runner,
		binary: binary,
		socket: socketPath,
	}
}

// Binary returns the tmux executable this client invokes.
func (c *Client) Binary() string {
	return c.binary
}

// SocketPath returns the private socket path this client talks to.
func (c *Client) SocketPath() string {
	return c.socket
}

// NewSessionArgs returns the argv (without the binary) that attaches a terminal to a
// new session on this socket. It is run as the emulator's child command.
func (c *Client) NewSessionArgs(name string) []string {
	return []string{"-S", c.socket, "new-session", "-s", name}
}

// HasSession reports whether the named session exists. A missing server or
// session is (false, nil); other failures are returned.
func (c *Client) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := c.run(ctx, "has-session", "-t", "="+name)
	if err == nil {
		return true, nil
	}
	if isNoSession(err) {
		return false, nil
	}
	return false, err
}

// NewDetachedSession creates the named session without attaching a client.
func (c *Client) NewDetachedSession(ctx context.Context, name string) error {
	_, err := c.run(ctx, "new-session", "-d", "-s", name)
	return err
}

// KillServer kills the tmux server for this client's socket.
func (c *Client) KillServer(ctx context.Context) error {
	_, err := c.run(ctx, "kill-server")
	// Ignore "no server running" errors - server is already gone
	if err != nil && isNoSession(err) {
		return nil
	}
	return err
}

// SetGlobalOption sets a global session option.
func (c *Client) SetGlobalOption(ctx context.Context, option, value string) error {
	_, err := c.run(ctx, "set-option", "-g", option, value)
	return err
}

// QuietBell turns off bell actions and activity alerts. Every option is attempted;
// the first failure is returned.
func (c *Client) QuietBell(ctx context.Context) error {
	var first error
	for _, opt := range [][2]string{
		{"bell-action", "none"},
		{"visual-activity", "off"},
		{"monitor-activity", "off"},
	} {
		if err := c.SetGlobalOption(ctx, opt[0], opt[1]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ClientTTYs lists the ttys of clients attached to the named session.
func (c *Client) ClientTTYs(ctx context.Context, name string) ([]string, error) {
	output, err := c.run(ctx, "list-clients", "-t", name, "-F", "#{client_tty}")
	if err != nil {
		return nil, err
	}
	var ttys []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ttys = append(ttys, line)
		}
	}
	return ttys, nil
}

// PaneCurrentPath returns the working directory of the session's active pane.
func (c *Client) PaneCurrentPath(ctx context.Context, name string) (string, error) {
	output, err := c.run(ctx, "display-message", "-p", "-t", name, "#{pane_current_path}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// PaneSize returns the active pane's grid size.
func (c *Client) PaneSize(ctx context.Context, name string) (cols, rows int, err error) {
	output, err := c.run(ctx, "display-message", "-p", "-t", name, "#{pane_width} #{pane_height}")
	if err != nil {
		return 0, 0, err
	}
	return parseSize(output)
}

// ClientSize returns the grid size of the client attached on tty.
func (c *Client) ClientSize(ctx context.Context, tty string) (cols, rows int, err error) {
	output, err := c.run(ctx, "display-message", "-p", "-c", tty, "#{client_width} #{client_height}")
	if err != nil {
		return 0, 0, err
	}
	return parseSize(output)
}

// RefreshClient sets the client size. An empty tty targets the most recent client.
func (c *Client) RefreshClient(ctx context.Context, tty string, cols, rows int) error {
	args := []string{"refresh-client"}
	if tty != "" {
		args = append(args, "-t", tty)
	}
	args = append(args, "-C", fmt.Sprintf("%d,%d", cols, rows))
	_, err := c.run(ctx, args...)
	return err
}

// SendKeys sends key names (e.g. "C-u", "Enter") to the session's active pane.
func (c *Client) SendKeys(ctx context.Context, name string, keys ...string) error {
	args := append([]string{"send-keys", "-t", name}, keys...)
	_, err := c.run(ctx, args...)
	return err
}

// SendLiteral types text into the session's active pane without key-name lookup.
func (c *Client) SendLiteral(ctx context.Context, name, text string) error {
	_, err := c.run(ctx, "send-keys", "-t", name, "-l", text)
	return err
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	argv := append([]string{"-S", c.socket}, args...)
	output, err := c.runner.Run(ctx, c.binary, argv...)
	if err != nil {
		return output, errors.CommandFailed(c.binary+" "+strings.Join(args, " "), err)
	}
	return output, nil
}

func parseSize(output string) (int, int, error) {
	fields := strings.Fields(output)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected size output %q", strings.TrimSpace(output))
	}
	cols, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width %q: %w", fields[0], err)
	}
	rows, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height %q: %w", fields[1], err)
	}
	if cols <= 0 || rows <= 0 {
		return 0, 0, fmt.Errorf("non-positive size %dx%d", cols, rows)
	}
	return cols, rows, nil
}

func isNoSession(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"exit status 1",
		"no server running",
		"can't find session",
		"error connecting",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
