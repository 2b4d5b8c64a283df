package tmux

import (
	"context"
	"fmt"
	"testing"

	"github.com/grovetools/embedterm/command/mocks"
	"github.com/grovetools/embedterm/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sock = "/run/user/1000/embedterm/tmux/1-abcd/tmux.sock"

func newTestClient() (*Client, *mocks.Runner) {
	runner := mocks.NewRunner()
	return NewClient(runner, "", sock), runner
}

func TestHasSession(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{name: "exists"},
		{name: "missing session", err: fmt.Errorf("exit status 1: can't find session: work"), want: false},
		{name: "no server", err: fmt.Errorf("no server running on %s", sock), want: false},
		{name: "binary absent", err: fmt.Errorf("exec: \"tmux\": executable file not found in $PATH"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, runner := newTestClient()
			runner.Set("", tt.err, "tmux", "-S", sock, "has-session", "-t", "=work")

			got, err := c.HasSession(context.Background(), "work")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrCodeCommandFailed))
				return
			}
			require.NoError(t, err)
			if tt.err == nil {
				assert.True(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNewSessionArgs(t *testing.T) {
	c, _ := newTestClient()
	assert.Equal(t, []string{"-S", sock, "new-session", "-s", "work"}, c.NewSessionArgs("work"))
	assert.Equal(t, "tmux", c.Binary())
	assert.Equal(t, sock, c.SocketPath())
}

func TestQuietBellAttemptsEveryOption(t *testing.T) {
	c, runner := newTestClient()
	runner.Set("", fmt.Errorf("boom"), "tmux", "-S", sock, "set-option", "-g", "bell-action", "none")

	err := c.QuietBell(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, runner.Count("bell-action", "none"))
	assert.Equal(t, 1, runner.Count("visual-activity", "off"))
	assert.Equal(t, 1, runner.Count("monitor-activity", "off"))
}

func TestClientTTYs(t *testing.T) {
	c, runner := newTestClient()
	runner.Set("/dev/pts/4\n/dev/pts/7\n\n", nil, "tmux", "-S", sock, "list-clients", "-t", "work", "-F", "#{client_tty}")

	ttys, err := c.ClientTTYs(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/pts/4", "/dev/pts/7"}, ttys)
}

func TestStatusQueries(t *testing.T) {
	c, runner := newTestClient()
	runner.Set("/home/me/src\n", nil, "tmux", "-S", sock, "display-message", "-p", "-t", "work", "#{pane_current_path}")
	runner.Set("80 24\n", nil, "tmux", "-S", sock, "display-message", "-p", "-t", "work", "#{pane_width} #{pane_height}")
	runner.Set("100 30\n", nil, "tmux", "-S", sock, "display-message", "-p", "-c", "/dev/pts/4", "#{client_width} #{client_height}")

	ctx := context.Background()
	path, err := c.PaneCurrentPath(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, "/home/me/src", path)

	cols, rows, err := c.PaneSize(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, [2]int{80, 24}, [2]int{cols, rows})

	cols, rows, err = c.ClientSize(ctx, "/dev/pts/4")
	require.NoError(t, err)
	assert.Equal(t, [2]int{100, 30}, [2]int{cols, rows})
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		cols    int
		rows    int
		wantErr bool
	}{
		{input: "80 24\n", cols: 80, rows: 24},
		{input: "  120   40 ", cols: 120, rows: 40},
		{input: "", wantErr: true},
		{input: "80", wantErr: true},
		{input: "eighty 24", wantErr: true},
		{input: "0 24", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cols, rows, err := parseSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cols, cols)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestRefreshClient(t *testing.T) {
	c, runner := newTestClient()
	ctx := context.Background()

	require.NoError(t, c.RefreshClient(ctx, "/dev/pts/4", 100, 30))
	require.NoError(t, c.RefreshClient(ctx, "", 90, 20))

	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"tmux", "-S", sock, "refresh-client", "-t", "/dev/pts/4", "-C", "100,30"}, calls[0])
	assert.Equal(t, []string{"tmux", "-S", sock, "refresh-client", "-C", "90,20"}, calls[1])
}

func TestSendKeysAndLiteral(t *testing.T) {
	c, runner := newTestClient()
	ctx := context.Background()

	require.NoError(t, c.SendKeys(ctx, "work", "C-u"))
	require.NoError(t, c.SendLiteral(ctx, "work", "cd -- '/tmp'"))

	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"tmux", "-S", sock, "send-keys", "-t", "work", "C-u"}, calls[0])
	assert.Equal(t, []string{"tmux", "-S", sock, "send-keys", "-t", "work", "-l", "cd -- '/tmp'"}, calls[1])
}

func TestKillServerIgnoresMissingServer(t *testing.T) {
	c, runner := newTestClient()
	runner.Set("", fmt.Errorf("no server running on %s", sock), "tmux", "-S", sock, "kill-server")
	assert.NoError(t, c.KillServer(context.Background()))
}

func TestSanitizeForTmuxSession(t *testing.T) {
	tests := map[string]string{
		"My Project":   "my-project",
		"a:b.c":        "a-b-c",
		"__x__":        "x",
		"":             "embedterm",
		"---":          "embedterm",
		"already-fine": "already-fine",
	}
	for input, want := range tests {
		assert.Equal(t, want, SanitizeForTmuxSession(input), input)
	}
}

func TestKeyName(t *testing.T) {
	tests := map[string]string{
		"ctrl+d":       "C-d",
		"Ctrl+C":       "C-c",
		"alt+x":        "M-x",
		"ctrl+shift+a": "C-S-a",
		"enter":        "Enter",
		"ctrl+space":   "C-Space",
	}
	for input, want := range tests {
		assert.Equal(t, want, KeyName(input), input)
	}
}
