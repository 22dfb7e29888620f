package cmd

import (
	"github.com/serayd61/stacks-tx-runner/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration directory",
	Run: func(cmd *cobra.Command, args []string) {
		configLoader := config.NewConfigurationLoader(configurationDirectory, logger)

		err := configLoader.Initialize()
		if err != nil {
			logger.Error().Err(err).Str("configuration_directory", configurationDirectory).Msg("error writing config")
			return
		}

		logger.Info().Str("configuration_file", configLoader.ConfigFile()).Msg("finished initializing configuration directory")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
