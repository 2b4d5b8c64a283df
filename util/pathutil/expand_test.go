package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PROJECT", "work")

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/src", filepath.Join(home, "src")},
		{"$HOME/$PROJECT", filepath.Join(home, "work")},
		{"/abs/path", "/abs/path"},
		{"~user/x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Expand(tt.in)
			require.NoError(t, err)
			if tt.want == "" {
				assert.True(t, filepath.IsAbs(got))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonical(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	target := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	got, err := Canonical(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	missing := filepath.Join(dir, "not", "yet")
	got, err = Canonical(missing)
	require.NoError(t, err)
	assert.Equal(t, missing, got)
}
