package tmux

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/embedterm/command"
	"github.com/grovetools/embedterm/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealServerLifecycle(t *testing.T) {
	testutil.RequireBinary(t, "tmux")

	// unix socket paths are length limited; t.TempDir can be too deep
	dir, err := os.MkdirTemp("", "et-")
	require.NoError(t, err)
	dir, err = filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	ctx := context.Background()
	name := "it-" + testutil.RandomString(6)
	c := NewClient(command.NewSafeBuilder(), "tmux", filepath.Join(dir, "tmux.sock"))
	t.Cleanup(func() {
		_ = c.KillServer(ctx)
		os.RemoveAll(dir)
	})

	ok, err := c.HasSession(ctx, name)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.NewDetachedSession(ctx, name))
	ok, err = c.HasSession(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)

	cols, rows, err := c.PaneSize(ctx, name)
	require.NoError(t, err)
	assert.Greater(t, cols, 0)
	assert.Greater(t, rows, 0)

	require.NoError(t, c.SendLiteral(ctx, name, "cd -- "+dir))
	require.NoError(t, c.SendKeys(ctx, name, "Enter"))
	testutil.Eventually(t, 5*time.Second, func() bool {
		path, err := c.PaneCurrentPath(ctx, name)
		return err == nil && path == dir
	}, "pane never reached the new directory")

	require.NoError(t, c.KillServer(ctx))
	ok, err = c.HasSession(ctx, name)
	require.NoError(t, err)
	assert.False(t, ok)
}
