package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/logging"
	"github.com/grovetools/embedterm/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the XDG-compliant paths used by embedterm.
type PathsOutput struct {
	ConfigDir   string `json:"config_dir"`
	ConfigFile  string `json:"config_file"`
	StateDir    string `json:"state_dir"`
	CacheDir    string `json:"cache_dir"`
	LogDir      string `json:"log_dir"`
	RuntimeDir  string `json:"runtime_dir"`
	SessionRoot string `json:"session_root"`
}

func currentPaths() PathsOutput {
	return PathsOutput{
		ConfigDir:   paths.ConfigDir(),
		ConfigFile:  config.GlobalConfigPath(),
		StateDir:    paths.StateDir(),
		CacheDir:    paths.CacheDir(),
		LogDir:      paths.LogDir(),
		RuntimeDir:  paths.RuntimeDir(),
		SessionRoot: paths.SessionRoot(),
	}
}

// NewPathsCmd creates the `paths` command.
func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by embedterm",
		Long: `Print the XDG-compliant paths used by embedterm as JSON.

- config_dir: Configuration files (embedterm.yml)
- state_dir: Persistent state and logs
- runtime_dir: Per-run session sockets
- session_root: Parent of each run's private socket directory

EMBEDTERM_HOME relocates all of them under a single root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := currentPaths()

			if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
				p := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
				p.Path("config", output.ConfigFile)
				p.Path("state", output.StateDir)
				p.Path("logs", output.LogDir)
				p.Path("sessions", output.SessionRoot)
				return nil
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}
	cmd.Flags().Bool("pretty", false, "Print a styled summary instead of JSON")

	return cmd
}
