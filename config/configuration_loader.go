package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/serayd61/stacks-tx-runner/log"
	"gopkg.in/yaml.v2"
)

// ConfigurationLoader loads configuration
type ConfigurationLoader struct {
	configurationDirectory string
	logger                 *log.Logger
}

func NewConfigurationLoader(configurationDirectory string, logger *log.Logger) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationDirectory: configurationDirectory,
		logger:                 logger,
	}
}

// LoadConfiguration reads the file, filling any field left out with its default.
func (cl *ConfigurationLoader) LoadConfiguration() (*Configuration, error) {
	configurationFile := cl.ConfigFile()

	data, err := os.ReadFile(configurationFile)
	if err != nil {
		return nil, err
	}

	loaded := DefaultConfiguration()
	err = yaml.UnmarshalStrict(data, loaded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configurationFile, err)
	}

	cl.logger.Debug().Str("configuration_file", configurationFile).Str("mode", loaded.Mode).Str("network", loaded.Network).Msg("loaded configuration")
	return loaded, nil
}

// Initialize writes the default configuration, refusing to overwrite an existing file.
func (cl *ConfigurationLoader) Initialize() error {
	err := os.MkdirAll(cl.configurationDirectory, 0o755)
	if err != nil {
		return err
	}

	configFile := cl.ConfigFile()
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("configuration file %s already exists", configFile)
	}

	data, err := yaml.Marshal(DefaultConfiguration())
	if err != nil {
		return err
	}

	header := "# This is the configuration file for the Stacks transaction runner\n"
	err = os.WriteFile(configFile, append([]byte(header), data...), 0o600)
	if err != nil {
		cl.logger.Error().Err(err).Str("configuration_file", configFile).Msg("error writing file")
		return err
	}

	return nil
}

func (cl *ConfigurationLoader) ConfigFile() string {
	return filepath.Join(cl.configurationDirectory, ConfigFilename)
}

// ExpandHomeDir replaces a leading ~ with the user's home directory.
func ExpandHomeDir(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
