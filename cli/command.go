package cli

import (
	"os"

	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds common options for embedterm commands
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a new command with the standard embedterm flags
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to embedterm.yml config file")

	SetStyledHelp(cmd)

	return cmd
}

// GetLogger returns the embedterm logger adjusted for the command's flags.
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	entry := logging.NewLogger("embedterm")

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		entry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return entry
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// InitConfig resolves the configuration file path. An empty result with a nil
// error means no file was found, which is fine for most commands.
func InitConfig(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	found, err := config.FindConfigFile(cwd)
	if err != nil {
		return "", nil
	}
	return found, nil
}

// LoadConfig loads the file given with --config over the global layer, or the
// hierarchical default when the flag is empty.
func LoadConfig(cmd *cobra.Command) (*config.Config, []string, error) {
	opts := GetOptions(cmd)
	if opts.ConfigFile != "" {
		cfg, err := config.Load(opts.ConfigFile)
		return cfg, []string{config.GlobalConfigPath(), opts.ConfigFile}, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	layers := []string{config.GlobalConfigPath()}
	if project, err := config.FindConfigFile(cwd); err == nil && project != layers[0] {
		layers = append(layers, project)
	}
	cfg, err := config.LoadFrom(cwd)
	return cfg, layers, err
}
