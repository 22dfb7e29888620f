package rpc

import "context"

// LedgerClient talks to a Stacks API node.
type LedgerClient interface {
	GetAccountState(ctx context.Context, address string) (*AccountState, error)

	// Broadcast submits a signed transaction. A returned error means the request itself failed.
	Broadcast(ctx context.Context, txBytes []byte) (*BroadcastResult, error)
}
