package cmd

import (
	"context"
	"os"

	"github.com/serayd61/stacks-tx-runner/config"
	"github.com/serayd61/stacks-tx-runner/log"
	"github.com/spf13/cobra"
)

var (
	rawLogLevel string
	logger      *log.Logger

	configurationDirectory string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "txrunner",
	Short: "Sends a batch of sequenced Stacks transactions.",
	Long: `txrunner signs and broadcasts a randomly sized batch of Stacks transactions
from a single account, tracking the account nonce locally across the batch.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Get a logger
		logger = log.NewLogger(rawLogLevel)

		configurationDirectory = config.ExpandHomeDir(configurationDirectory)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configurationDirectory, "config-directory", "c", "~/.txrunner", "Where to store txrunner's configuration")
	rootCmd.PersistentFlags().StringVarP(&rawLogLevel, "log-level", "l", "info", "Logging level")
}
