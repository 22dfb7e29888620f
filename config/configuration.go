package config

import (
	"fmt"
	"time"

	"github.com/serayd61/stacks-tx-runner/runner"
	"github.com/serayd61/stacks-tx-runner/stacks"
)

// ConfigFilename is the name of the configuration file inside the configuration directory.
const ConfigFilename = "txrunner.yml"

// ActionArgument is a typed Clarity argument as written in the configuration file.
type ActionArgument struct {
	Type  string `yaml:"type" comment:"One of int, uint, bool, buffer, string-ascii, string-utf8, principal, none"`
	Value string `yaml:"value"`
}

// ContractAction is one entry of the contract call catalog.
type ContractAction struct {
	ContractAddress string           `yaml:"contract_address"`
	ContractName    string           `yaml:"contract_name"`
	FunctionName    string           `yaml:"function_name"`
	Arguments       []ActionArgument `yaml:"arguments"`
	Description     string           `yaml:"description"`
}

// Configuration is configuration for the transaction runner
type Configuration struct {
	Network          string `yaml:"network" comment:"mainnet or testnet"`
	ApiUrl           string `yaml:"api_url" comment:"Base url of a Stacks API node"`
	ExplorerUrl      string `yaml:"explorer_url" comment:"Base url of a block explorer. If empty, no links are printed."`
	Address          string `yaml:"address" comment:"The sending address. If empty, it is derived from the private key."`
	PrivateKeyEnvVar string `yaml:"private_key_env_var" comment:"Environment variable holding the hex private key"`

	Mode        string `yaml:"mode" comment:"transfer or contract-call"`
	MinTxPerRun int    `yaml:"min_tx_per_run"`
	MaxTxPerRun int    `yaml:"max_tx_per_run"`

	Fee                     uint64 `yaml:"fee" comment:"Fixed fee per transaction in microSTX"`
	BalanceSafetyMultiplier uint64 `yaml:"balance_safety_multiplier" comment:"How many transactions worth of spend the balance must cover before a run starts"`
	DelayBetweenTxSeconds   uint   `yaml:"delay_between_tx_seconds"`
	PostConditionMode       string `yaml:"post_condition_mode" comment:"allow or deny"`

	NetworkRetryAttempts     uint `yaml:"network_retry_attempts" comment:"How many attempts to make when reading account state"`
	NetworkRetryDelaySeconds uint `yaml:"network_retry_delay_seconds"`
	RequestTimeoutSeconds    uint `yaml:"request_timeout_seconds"`

	MinTransferAmount uint64   `yaml:"min_transfer_amount" comment:"Transfer mode only, in microSTX"`
	MaxTransferAmount uint64   `yaml:"max_transfer_amount" comment:"Transfer mode only, in microSTX"`
	Recipients        []string `yaml:"recipients" comment:"Transfer mode only"`
	Memos             []string `yaml:"memos" comment:"Transfer mode only. Memos are at most 34 bytes."`

	Actions []ContractAction `yaml:"actions" comment:"Contract-call mode only"`

	HealthChecksPingKey string `yaml:"health_checks_ping_key" comment:"A healthchecks.io check uuid. If empty, no pings will be delivered."`
}

// DefaultConfiguration is written by init.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		Network:          stacks.Testnet.Name,
		ApiUrl:           "https://api.testnet.hiro.so",
		ExplorerUrl:      "https://explorer.hiro.so",
		PrivateKeyEnvVar: "STACKS_PRIVATE_KEY",

		Mode:        string(runner.ModeTransfer),
		MinTxPerRun: 1,
		MaxTxPerRun: 2,

		Fee:                     3000,
		BalanceSafetyMultiplier: 3,
		DelayBetweenTxSeconds:   3,
		PostConditionMode:       "deny",

		NetworkRetryAttempts:     3,
		NetworkRetryDelaySeconds: 1,
		RequestTimeoutSeconds:    30,

		MinTransferAmount: 1000,
		MaxTransferAmount: 5000,
		Recipients:        []string{},
		Memos:             []string{},
		Actions:           []ContractAction{},
	}
}

func (c *Configuration) DelayBetweenTx() time.Duration {
	return time.Duration(c.DelayBetweenTxSeconds) * time.Second
}

func (c *Configuration) NetworkRetryDelay() time.Duration {
	return time.Duration(c.NetworkRetryDelaySeconds) * time.Second
}

func (c *Configuration) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// StacksNetwork resolves the configured network.
func (c *Configuration) StacksNetwork() (stacks.Network, error) {
	return stacks.NetworkByName(c.Network)
}

// RunnerConfig converts the file configuration into the runner's immutable configuration.
func (c *Configuration) RunnerConfig(address string) (runner.Config, error) {
	network, err := c.StacksNetwork()
	if err != nil {
		return runner.Config{}, err
	}

	runnerConfig := runner.Config{
		Address:           address,
		Mode:              runner.Mode(c.Mode),
		MinTxCount:        c.MinTxPerRun,
		MaxTxCount:        c.MaxTxPerRun,
		Fee:               c.Fee,
		BalanceMultiplier: c.BalanceSafetyMultiplier,
		Delay:             c.DelayBetweenTx(),
		Transfer: runner.TransferParameters{
			MinAmount: c.MinTransferAmount,
			MaxAmount: c.MaxTransferAmount,
			Memos:     c.Memos,
		},
	}

	for _, memo := range c.Memos {
		if len(memo) > 34 {
			return runner.Config{}, fmt.Errorf("memo %q is longer than 34 bytes", memo)
		}
	}

	for _, recipient := range c.Recipients {
		parsed, err := stacks.ParseAddress(recipient)
		if err != nil {
			return runner.Config{}, err
		}
		if parsed.Version != network.AddressVersion {
			return runner.Config{}, fmt.Errorf("recipient %s is not a %s address", recipient, network.Name)
		}
		runnerConfig.Transfer.Recipients = append(runnerConfig.Transfer.Recipients, parsed)
	}

	for _, action := range c.Actions {
		converted, err := action.toAction()
		if err != nil {
			return runner.Config{}, err
		}
		runnerConfig.Catalog = append(runnerConfig.Catalog, converted)
	}

	return runnerConfig, nil
}

func (ca ContractAction) toAction() (runner.Action, error) {
	contractAddress, err := stacks.ParseAddress(ca.ContractAddress)
	if err != nil {
		return runner.Action{}, fmt.Errorf("action %q: %w", ca.Description, err)
	}
	if ca.ContractName == "" || ca.FunctionName == "" {
		return runner.Action{}, fmt.Errorf("action %q: contract and function names are required", ca.Description)
	}

	arguments := make([]stacks.ClarityValue, 0, len(ca.Arguments))
	for _, argument := range ca.Arguments {
		value, err := stacks.ParseClarityValue(argument.Type, argument.Value)
		if err != nil {
			return runner.Action{}, fmt.Errorf("action %q: %w", ca.Description, err)
		}
		arguments = append(arguments, value)
	}

	payload := &stacks.ContractCallPayload{
		ContractAddress: contractAddress,
		ContractName:    ca.ContractName,
		FunctionName:    ca.FunctionName,
		Arguments:       arguments,
	}

	description := ca.Description
	if description == "" {
		description = payload.Describe()
	}

	return runner.Action{Payload: payload, Description: description}, nil
}
