package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/serayd61/stacks-tx-runner/config"
	"github.com/serayd61/stacks-tx-runner/health"
	"github.com/serayd61/stacks-tx-runner/rpc"
	"github.com/serayd61/stacks-tx-runner/runner"
	"github.com/serayd61/stacks-tx-runner/signer"
	"github.com/serayd61/stacks-tx-runner/sleep"
	"github.com/serayd61/stacks-tx-runner/stacks"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send one batch of transactions",
	Long:  `Fetches the account nonce once, then signs and broadcasts each planned transaction in order.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println()
		fmt.Println("============================================================")
		fmt.Println("txrunner")
		fmt.Println("============================================================")
		fmt.Println("")

		ctx := cmd.Context()

		// Load configuration
		configurationLoader := config.NewConfigurationLoader(configurationDirectory, logger)
		configuration, err := configurationLoader.LoadConfiguration()
		if err != nil {
			logger.Error().Err(err).Msg("failed to load configuration from file")
			os.Exit(1)
		}

		network, err := configuration.StacksNetwork()
		if err != nil {
			logger.Error().Err(err).Msg("invalid network")
			os.Exit(1)
		}
		postConditionMode, err := stacks.ParsePostConditionMode(configuration.PostConditionMode)
		if err != nil {
			logger.Error().Err(err).Msg("invalid post condition mode")
			os.Exit(1)
		}

		// Signing credential
		privateKey, err := signer.LoadPrivateKey(configuration.PrivateKeyEnvVar)
		if err != nil {
			logger.Error().Err(err).Str("env_var", configuration.PrivateKeyEnvVar).Msg("unable to load a signing key, set it in the environment")
			os.Exit(1)
		}
		txSigner, err := signer.NewSigner(network, privateKey, configuration.Fee, postConditionMode, logger)
		if err != nil {
			logger.Error().Err(err).Msg("unable to create a signer")
			os.Exit(1)
		}

		address := configuration.Address
		if address == "" {
			address = txSigner.Address()
		} else if address != txSigner.Address() {
			logger.Error().Str("configured_address", address).Str("key_address", txSigner.Address()).Msg("configured address does not match the private key")
			os.Exit(1)
		}

		runnerConfig, err := configuration.RunnerConfig(address)
		if err != nil {
			logger.Error().Err(err).Msg("invalid runner configuration")
			os.Exit(1)
		}

		prefixedLogger := logger.ApplyPrefix(fmt.Sprintf(" [%s]", network.Name))
		ledger := rpc.NewLedgerClient(
			configuration.ApiUrl,
			configuration.NetworkRetryAttempts,
			configuration.NetworkRetryDelay(),
			configuration.RequestTimeout(),
			prefixedLogger,
		)

		txRunner, err := runner.NewRunner(
			runnerConfig,
			ledger,
			txSigner,
			rand.New(rand.NewSource(time.Now().UnixNano())),
			sleep.NewSleeper(prefixedLogger),
			prefixedLogger,
		)
		if err != nil {
			logger.Error().Err(err).Msg("unable to create a runner")
			os.Exit(1)
		}

		var healthClient *health.HealthCheckClient
		if configuration.HealthChecksPingKey != "" {
			healthClient = health.NewHealthCheckClient(health.DefaultBaseURL, configuration.HealthChecksPingKey, prefixedLogger)
			healthClient.Start(ctx, fmt.Sprintf("starting run for %s", address))
		} else {
			logger.Info().Msg("not sending healthchecks.io pings as they are disabled in config.")
		}

		prefixedLogger.Info().Str("address", address).Str("mode", string(runnerConfig.Mode)).Msg("starting run")
		results, err := txRunner.Run(ctx)
		if err != nil {
			prefixedLogger.Error().Err(err).Msg("run aborted before sending any transactions")
			if healthClient != nil {
				healthClient.Failed(ctx, err.Error())
			}
			os.Exit(1)
		}

		results.PrintSummary(os.Stdout, configuration.ExplorerUrl, network.Name)

		finalState, err := ledger.GetAccountState(ctx, address)
		if err != nil {
			prefixedLogger.Warn().Err(err).Msg("unable to fetch final balance")
		} else {
			prefixedLogger.Info().Uint64("balance", finalState.Balance).Uint64("nonce", finalState.Nonce).Msg("final account state")
		}

		if healthClient != nil {
			healthClient.Success(ctx, fmt.Sprintf("%d/%d transactions accepted", results.Successful(), len(results)))
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
