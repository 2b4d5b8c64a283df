package command

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestValidateSessionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid name", "zeropad", false},
		{"valid with underscore", "embed_term", false},
		{"valid with hyphen", "embed-term", false},
		{"valid with numbers", "term2", false},
		{"empty name", "", true},
		{"colon separator", "a:b", true},
		{"dot separator", "a.b", true},
		{"starts with hyphen", "-term", true},
		{"too long", strings.Repeat("a", 51), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSessionName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSessionName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSocketPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid path", "/run/user/1000/embedterm/tmux/1-abc/sock", false},
		{"relative path", "tmux/sock", true},
		{"directory traversal", "/tmp/../etc/sock", true},
		{"empty path", "", true},
		{"too long", "/" + strings.Repeat("s", 120), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSocketPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSocketPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateWindowID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"decimal", "62914566", false},
		{"hex", "0x3c00006", false},
		{"empty", "", true},
		{"shell metacharacters", "1;rm", true},
		{"negative", "-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWindowID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateWindowID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSafeBuilder(t *testing.T) {
	sb := NewSafeBuilder()

	// Test valid command
	ctx := context.Background()
	cmd, err := sb.Build(ctx, "echo", "hello")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer cmd.Release()

	if cmd.name != "echo" {
		t.Errorf("expected name 'echo', got %s", cmd.name)
	}

	if len(cmd.args) != 1 || cmd.args[0] != "hello" {
		t.Errorf("expected args ['hello'], got %v", cmd.args)
	}

	// Test empty command name
	_, err = sb.Build(ctx, "")
	if err == nil {
		t.Error("expected error for empty command name")
	}

	if _, err := sb.Detached(""); err == nil {
		t.Error("expected error for empty detached command name")
	}
}

func TestBuildAppliesDefaultTimeout(t *testing.T) {
	cmd, err := NewSafeBuilder().Build(context.Background(), "true")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer cmd.Release()

	deadline, ok := cmd.ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if left := time.Until(deadline); left > DefaultTimeout {
		t.Errorf("deadline %v exceeds default timeout %v", left, DefaultTimeout)
	}
}

func TestRunCapturesStdoutOnly(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	sb := NewSafeBuilder()

	out, err := sb.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "out\n" {
		t.Errorf("expected stdout only, got %q", out)
	}

	_, err = sb.Run(context.Background(), "sh", "-c", "echo boom 1>&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestMissing(t *testing.T) {
	present := map[string]bool{"tmux": true}
	lookPath := func(name string) (string, error) {
		if present[name] {
			return "/usr/bin/" + name, nil
		}
		return "", fmt.Errorf("%s: not found", name)
	}

	got := Missing(lookPath, "xterm", "tmux", "xdotool")
	if len(got) != 2 || got[0] != "xterm" || got[1] != "xdotool" {
		t.Errorf("Missing() = %v, want [xterm xdotool]", got)
	}

	if got := Missing(lookPath, "tmux"); len(got) != 0 {
		t.Errorf("Missing() = %v, want none", got)
	}
}
