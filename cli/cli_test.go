package cli

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/grovetools/embedterm/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config not found", errors.ConfigNotFound("/etc/embedterm.yml"), "/etc/embedterm.yml"},
		{"config invalid", errors.ConfigInvalid("bad alpha"), "config validate"},
		{"missing dependency", errors.MissingDependency([]string{"xterm", "tmux"}), "[xterm tmux]"},
		{"spawn failed", errors.SpawnFailed("xterm", fmt.Errorf("exec format error")), "Could not start xterm"},
		{"display", errors.DisplayUnavailable(fmt.Errorf("no such display")), "DISPLAY"},
		{"wrapped", fmt.Errorf("run: %w", errors.MissingDependency([]string{"tmux"})), "[tmux]"},
		{"plain", fmt.Errorf("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &ErrorHandler{Out: &buf}
			assert.Equal(t, tt.err, h.Handle(tt.err))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestErrorHandlerVerboseDetails(t *testing.T) {
	var buf bytes.Buffer
	h := &ErrorHandler{Verbose: true, Out: &buf}
	h.Handle(errors.SpawnFailed("xterm", fmt.Errorf("denied")))
	assert.Contains(t, buf.String(), `"code": "SPAWN_FAILED"`)

	assert.NoError(t, h.Handle(nil))
}

func TestStandardCommandFlags(t *testing.T) {
	cmd := NewStandardCommand("embedterm", "test")
	sub := &cobra.Command{Use: "sub", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.AddCommand(sub)
	cmd.SetArgs([]string{"sub", "-v", "--json", "-c", "/tmp/x.yml"})
	require.NoError(t, cmd.Execute())

	opts := GetOptions(sub)
	assert.True(t, opts.Verbose)
	assert.True(t, opts.JSONOutput)
	assert.Equal(t, "/tmp/x.yml", opts.ConfigFile)

	got, err := InitConfig(opts.ConfigFile)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.yml", got)
}

func TestVersionCommandJSON(t *testing.T) {
	root := NewStandardCommand("embedterm", "test")
	root.AddCommand(NewVersionCommand("embedterm"))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"version": "dev"`)
}

func TestParseChoices(t *testing.T) {
	tests := []struct {
		usage       string
		wantDesc    string
		wantChoices []string
	}{
		{"Output format: yaml, json, toml", "Output format:", []string{"yaml", "json", "toml"}},
		{"Output format: yaml, json, or toml (default yaml)", "Output format: (default yaml)", []string{"yaml", "json", "toml"}},
		{"Enable verbose logging", "Enable verbose logging", nil},
		{"Pick one: a, b", "Pick one: a, b", nil},
	}

	for _, tt := range tests {
		t.Run(tt.usage, func(t *testing.T) {
			desc, choices := parseChoices(tt.usage)
			assert.Equal(t, tt.wantDesc, desc)
			assert.Equal(t, tt.wantChoices, choices)
		})
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("embed a terminal into an existing window and keep it alive", 20)
	for _, line := range bytes.Split([]byte(got), []byte("\n")) {
		assert.LessOrEqual(t, len(line), 20)
	}
	assert.Equal(t, "short", wrapText("short", 20))
}

func TestStyledHelpOutput(t *testing.T) {
	root := NewStandardCommand("embedterm", "Embedded terminal supervisor")
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration after layering.

Examples:
  # as TOML
  embedterm show --format toml`,
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	show.Flags().String("format", "yaml", "Output format: yaml, json, or toml")
	root.AddCommand(show)
	ApplyStyledHelpRecursive(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"show", "--help"})
	require.NoError(t, root.Execute())

	help := out.String()
	for _, want := range []string{"EMBEDTERM SHOW", "USAGE", "FLAGS", "--format", "• toml", "(default: yaml)", "EXAMPLES", "# as TOML"} {
		assert.Contains(t, help, want)
	}
	assert.NotContains(t, help, "Examples:")

	out.Reset()
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "COMMANDS")
	assert.Contains(t, out.String(), "show")
}

func TestParseDescription(t *testing.T) {
	desc, examples := parseDescription("Does things.\n\nExamples:\n  embedterm run --into 0x1\n")
	assert.Equal(t, "Does things.", desc)
	assert.Equal(t, "embedterm run --into 0x1", examples)
}
