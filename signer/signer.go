package signer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/serayd61/stacks-tx-runner/log"
	"github.com/serayd61/stacks-tx-runner/stacks"
)

// ErrMissingCredential is returned when no private key is available to sign with.
var ErrMissingCredential = errors.New("signing credential not set")

// LoadPrivateKey reads a private key from the named environment variable.
func LoadPrivateKey(envVar string) (*stacks.PrivateKey, error) {
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		return nil, fmt.Errorf("%w: environment variable %s is empty", ErrMissingCredential, envVar)
	}

	return stacks.ParsePrivateKey(raw)
}

// Signer builds and signs transactions at a fixed fee.
type Signer struct {
	network           stacks.Network
	key               *stacks.PrivateKey
	fee               uint64
	postConditionMode stacks.PostConditionMode

	log *log.Logger
}

func NewSigner(
	network stacks.Network,
	key *stacks.PrivateKey,
	fee uint64,
	postConditionMode stacks.PostConditionMode,
	log *log.Logger,
) (*Signer, error) {
	if key == nil {
		return nil, ErrMissingCredential
	}

	return &Signer{
		network:           network,
		key:               key,
		fee:               fee,
		postConditionMode: postConditionMode,

		log: log,
	}, nil
}

// Address is the sender address derived from the key.
func (s *Signer) Address() string {
	return s.key.Address(s.network).String()
}

// Sign returns the serialized, signed transaction for the payload at the given nonce.
func (s *Signer) Sign(payload stacks.Payload, nonce uint64) ([]byte, error) {
	tx := &stacks.Transaction{
		Network:           s.network,
		SignerHash160:     s.key.Hash160(),
		Nonce:             nonce,
		Fee:               s.fee,
		Compressed:        s.key.Compressed(),
		PostConditionMode: s.postConditionMode,
		Payload:           payload,
	}

	err := tx.Sign(s.key)
	if err != nil {
		return nil, fmt.Errorf("error signing transaction: %w", err)
	}

	s.log.Debug().Uint64("nonce", nonce).Uint64("fee", s.fee).Str("tx_id", tx.TxID()).Msg("signed transaction")
	return tx.Serialize(), nil
}
