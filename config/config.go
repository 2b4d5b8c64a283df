package config

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

var configNames = []string{
	"embedterm.yml",
	"embedterm.yaml",
	"embedterm.toml",
	".embedterm.yml",
	".embedterm.yaml",
}

// Load reads the global configuration (if any) and then the file at path on top of it.
// Unlike the global layer, path must exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to stat config file").
			WithDetail("path", path)
	}

	return LoadFiles(logrus.New(), GlobalConfigPath(), path)
}

// LoadDefault finds and loads the configuration with hierarchical merging:
// 1. Built-in defaults
// 2. Global config (~/.config/embedterm/embedterm.yml)
// 3. Project config found from the current directory upward
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory.
// A missing project file is not an error.
func LoadFrom(startDir string) (*Config, error) {
	layers := []string{GlobalConfigPath()}
	if projectPath, err := FindConfigFile(startDir); err == nil && projectPath != layers[0] {
		layers = append(layers, projectPath)
	}
	return LoadFiles(logrus.New(), layers...)
}

// LoadFiles decodes each existing file over the built-in defaults, in order,
// then validates the result. Empty and missing paths are skipped.
func LoadFiles(logger *logrus.Logger, layers ...string) (*Config, error) {
	cfg := Default()

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}

	for _, path := range layers {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
				WithDetail("path", path)
		}

		logger.WithField("path", path).Debug("Loading configuration layer")
		if err := decodeLayer(cfg, validator, path, data); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if out, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(out))
		}
	}

	return cfg, nil
}

// LoadFromBytes parses a single YAML or TOML document over the defaults.
func LoadFromBytes(data []byte, format string) (*Config, error) {
	cfg := Default()
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	name := "embedterm.yml"
	if format == "toml" {
		name = "embedterm.toml"
	}
	if err := decodeLayer(cfg, validator, name, data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeLayer validates one document against the schema and decodes it onto cfg.
func decodeLayer(cfg *Config, validator *SchemaValidator, path string, data []byte) error {
	expanded := []byte(expandEnvVars(string(data)))
	if len(bytes.TrimSpace(expanded)) == 0 {
		return nil
	}

	var raw map[string]interface{}
	isTOML := strings.HasSuffix(path, ".toml")
	if isTOML {
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration").
				WithDetail("path", path)
		}
	} else {
		if err := yaml.Unmarshal(expanded, &raw); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration").
				WithDetail("path", path)
		}
	}

	if raw == nil {
		return nil
	}

	if err := validator.Validate(raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed").
			WithDetail("path", path)
	}

	if isTOML {
		if err := toml.Unmarshal(expanded, cfg); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode TOML configuration").
				WithDetail("path", path)
		}
		// toml has no inline maps; carry unknown top-level tables over by hand
		for key, value := range raw {
			if knownSections[key] {
				continue
			}
			if cfg.Extensions == nil {
				cfg.Extensions = make(map[string]interface{})
			}
			cfg.Extensions[key] = value
		}
		return nil
	}

	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode YAML configuration").
			WithDetail("path", path)
	}
	return nil
}

var knownSections = map[string]bool{
	"emulator":    true,
	"multiplexer": true,
	"theme":       true,
	"timing":      true,
	"respawn":     true,
	"geometry":    true,
	"intercept":   true,
}

// FindConfigFile searches for embedterm configuration files with the following precedence:
// 1. startDir up to filesystem root
// 2. XDG config directory (~/.config/embedterm/embedterm.yml)
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if global := GlobalConfigPath(); global != "" {
		if info, err := os.Stat(global); err == nil && !info.IsDir() {
			return global, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// GlobalConfigPath returns the first existing global config file, or the default
// YAML location when none exists.
func GlobalConfigPath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	for _, name := range configNames[:3] {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, configNames[0])
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
