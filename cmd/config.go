package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/grovetools/embedterm/cli"
	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/logging"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate embedterm configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSchemaCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Shows the configuration after merging the layers:
1. Built-in defaults
2. Global config (~/.config/embedterm/embedterm.yml)
3. Project config (embedterm.yml found from the current directory upward)

Examples:
  embedterm config show
  embedterm config show --format toml
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, layers, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			if cli.GetOptions(cmd).JSONOutput {
				format = "json"
			}

			out := cmd.OutOrStdout()
			if format == "yaml" {
				for _, layer := range layers {
					if _, err := os.Stat(layer); err == nil {
						fmt.Fprintf(out, "# Source: %s\n", layer)
					}
				}
			}
			return writeConfig(out, cfg, format)
		},
	}
	cmd.Flags().String("format", "yaml", "Output format: yaml, json, toml")
	return cmd
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml", "":
		data, err = yaml.Marshal(cfg)
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	case "toml":
		data, err = toml.Marshal(cfg)
	default:
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown format %q", format))
	}
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of embedterm.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a configuration file",
		Long: `Checks a file against the schema and the value constraints. Without an
argument the project or global file is validated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				found, err := cli.InitConfig(cli.GetOptions(cmd).ConfigFile)
				if err != nil {
					return err
				}
				path = found
			}
			if path == "" {
				return errors.ConfigNotFound(".")
			}
			if err := validateConfigFile(path); err != nil {
				return err
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success(fmt.Sprintf("%s is valid", path))
			return nil
		},
	}
}

// validateConfigFile checks path on its own, without the global layer.
func validateConfigFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.ConfigNotFound(path)
		}
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to stat config file").
			WithDetail("path", path)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	_, err := config.LoadFiles(logger, path)
	return err
}
