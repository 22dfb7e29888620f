package runner

import (
	"fmt"
	"time"

	"github.com/serayd61/stacks-tx-runner/stacks"
)

// Mode selects how each attempt's action is chosen.
type Mode string

const (
	// ModeTransfer sends a random amount to a random recipient.
	ModeTransfer Mode = "transfer"

	// ModeContractCall picks uniformly from a catalog of contract calls.
	ModeContractCall Mode = "contract-call"
)

// Action is one thing an attempt can do.
type Action struct {
	Payload     stacks.Payload
	Description string
}

// TransferParameters bound the transfers generated in transfer mode.
type TransferParameters struct {
	Recipients []stacks.Address
	MinAmount  uint64
	MaxAmount  uint64
	Memos      []string
}

// Config is fixed for the lifetime of a Runner.
type Config struct {
	Address string
	Mode    Mode

	// Inclusive bounds on the number of attempts in a run.
	MinTxCount int
	MaxTxCount int

	Fee uint64

	// The balance must cover this many transactions worth of spend.
	BalanceMultiplier uint64

	Delay time.Duration

	Catalog  []Action
	Transfer TransferParameters
}

// MinimumBalance is the balance required before any attempt is made.
func (c Config) MinimumBalance() uint64 {
	if c.Mode == ModeTransfer {
		return (c.Transfer.MinAmount + c.Fee) * c.BalanceMultiplier
	}
	return c.Fee * c.BalanceMultiplier
}

func (c Config) validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.MinTxCount < 0 || c.MaxTxCount < c.MinTxCount {
		return fmt.Errorf("invalid transaction count bounds [%d, %d]", c.MinTxCount, c.MaxTxCount)
	}

	switch c.Mode {
	case ModeTransfer:
		if len(c.Transfer.Recipients) == 0 {
			return fmt.Errorf("transfer mode needs at least one recipient")
		}
		if c.Transfer.MaxAmount < c.Transfer.MinAmount {
			return fmt.Errorf("invalid transfer amount bounds [%d, %d]", c.Transfer.MinAmount, c.Transfer.MaxAmount)
		}
	case ModeContractCall:
		if len(c.Catalog) == 0 {
			return fmt.Errorf("contract-call mode needs a non-empty action catalog")
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	return nil
}

// clone copies the slices so later changes by the caller are not observed.
func (c Config) clone() Config {
	cloned := c
	cloned.Catalog = append([]Action(nil), c.Catalog...)
	cloned.Transfer.Recipients = append([]stacks.Address(nil), c.Transfer.Recipients...)
	cloned.Transfer.Memos = append([]string(nil), c.Transfer.Memos...)
	return cloned
}
