// Package paths provides XDG-compliant path resolution for embedterm.
//
// Resolution order:
// 1. EMBEDTERM_HOME (portable root) → $EMBEDTERM_HOME/{config,state,cache,run}
// 2. XDG env vars → $XDG_*_HOME/embedterm
// 3. Platform defaults → ~/.config/embedterm, ~/.local/state/embedterm, etc.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "embedterm"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("EMBEDTERM_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("EMBEDTERM_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// getCacheHome returns the base cache home directory.
func getCacheHome() string {
	if home := os.Getenv("EMBEDTERM_HOME"); home != "" {
		return filepath.Join(home, "cache")
	}
	if xdgCacheHome := os.Getenv("XDG_CACHE_HOME"); xdgCacheHome != "" {
		return xdgCacheHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".cache")
	}
	return ""
}

// ConfigDir returns the embedterm configuration directory.
// Used for embedterm.yml / embedterm.toml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the embedterm state directory.
// Used for logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// CacheDir returns the embedterm cache directory.
func CacheDir() string {
	base := getCacheHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// LogDir returns the directory holding component log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the embedterm runtime directory for sockets.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to CacheDir (macOS).
func RuntimeDir() string {
	if home := os.Getenv("EMBEDTERM_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return CacheDir()
}

// SessionRoot returns the parent of all per-run multiplexer socket directories.
func SessionRoot() string {
	runtime := RuntimeDir()
	if runtime == "" {
		return filepath.Join(os.TempDir(), appName+"-tmux")
	}
	return filepath.Join(runtime, "tmux")
}

// EnsureDirs creates the shared embedterm directories if they don't exist.
// Per-run session directories are created by the session supervisor with
// owner-only permissions.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		StateDir(),
		LogDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
