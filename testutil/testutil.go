package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireBinary skips the test if name is not in PATH.
func RequireBinary(t *testing.T, name string) {
	t.Helper()

	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

// RequireDisplay skips the test if no X display is configured.
func RequireDisplay(t *testing.T) {
	t.Helper()

	if os.Getenv("DISPLAY") == "" {
		t.Skip("no X display (DISPLAY is unset)")
	}
}

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// Eventually polls cond until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, timeout, 10*time.Millisecond, msg)
}

// PortableHome points every embedterm directory at a fresh temporary root.
func PortableHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("EMBEDTERM_HOME", home)
	return home
}
