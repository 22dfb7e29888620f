package rpc

import "fmt"

// AccountState is what the ledger reports for an address at the start of a run.
type AccountState struct {
	Address string
	Balance uint64
	Nonce   uint64
}

// BroadcastResult is the interpreted response of the broadcast endpoint.
type BroadcastResult struct {
	TxID   string
	Error  string
	Reason string

	// Raw holds the response body when it could not be interpreted.
	Raw string
}

// Succeeded is true when the node returned a transaction id and no error.
func (br *BroadcastResult) Succeeded() bool {
	return br.TxID != "" && br.Error == ""
}

// Err describes a failed broadcast.
func (br *BroadcastResult) Err() error {
	if br.Succeeded() {
		return nil
	}

	switch {
	case br.Error != "" && br.Reason != "":
		return fmt.Errorf("broadcast rejected: %s (reason: %s)", br.Error, br.Reason)
	case br.Error != "":
		return fmt.Errorf("broadcast rejected: %s", br.Error)
	default:
		return fmt.Errorf("unrecognized broadcast response: %.200s", br.Raw)
	}
}
