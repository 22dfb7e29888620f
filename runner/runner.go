package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/serayd61/stacks-tx-runner/log"
	"github.com/serayd61/stacks-tx-runner/rpc"
	"github.com/serayd61/stacks-tx-runner/signer"
	"github.com/serayd61/stacks-tx-runner/sleep"
	"github.com/serayd61/stacks-tx-runner/stacks"
)

// ErrInsufficientBalance aborts a run before any attempt.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Random is the entropy source for the attempt count and action selection. *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// TransactionSigner produces a signed, serialized transaction.
type TransactionSigner interface {
	Sign(payload stacks.Payload, nonce uint64) ([]byte, error)
}

// Runner sends a randomly sized batch of transactions one at a time.
//
// The nonce is fetched once. It advances only after an accepted broadcast, so a failed
// attempt leaves the next attempt at the same nonce. Failed attempts are never replayed.
type Runner struct {
	config Config

	ledger  rpc.LedgerClient
	signer  TransactionSigner
	random  Random
	sleeper sleep.Sleeper

	log *log.Logger
}

func NewRunner(
	config Config,
	ledger rpc.LedgerClient,
	signer TransactionSigner,
	random Random,
	sleeper sleep.Sleeper,
	log *log.Logger,
) (*Runner, error) {
	err := config.validate()
	if err != nil {
		return nil, err
	}

	return &Runner{
		config: config.clone(),

		ledger:  ledger,
		signer:  signer,
		random:  random,
		sleeper: sleeper,

		log: log,
	}, nil
}

// Run performs one batch. An error means a precondition failed and nothing was sent.
func (r *Runner) Run(ctx context.Context) (Results, error) {
	if r.signer == nil {
		return nil, signer.ErrMissingCredential
	}

	accountState, err := r.ledger.GetAccountState(ctx, r.config.Address)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch account state for %s: %w", r.config.Address, err)
	}
	r.log.Info().Str("address", accountState.Address).Uint64("balance", accountState.Balance).Uint64("nonce", accountState.Nonce).Msg("fetched account state")

	minimumBalance := r.config.MinimumBalance()
	if accountState.Balance < minimumBalance {
		return nil, fmt.Errorf("%w: have %d, need at least %d", ErrInsufficientBalance, accountState.Balance, minimumBalance)
	}

	count := r.randomBetween(r.config.MinTxCount, r.config.MaxTxCount)
	nonce := accountState.Nonce
	r.log.Info().Int("count", count).Uint64("starting_nonce", nonce).Msg("starting transaction run")

	results := make(Results, 0, count)
	for i := 0; i < count; i++ {
		action := r.nextAction()

		result := r.attempt(ctx, i, nonce, action)
		results = append(results, result)

		if result.Succeeded() {
			nonce++
		}

		if i < count-1 {
			r.sleeper.Sleep(ctx, r.config.Delay)
		}
	}

	return results, nil
}

// attempt builds, signs and broadcasts a single transaction. Every failure is folded into the result.
func (r *Runner) attempt(ctx context.Context, index int, nonce uint64, action Action) *Result {
	result := &Result{
		Attempt:     index,
		Description: action.Description,
		Nonce:       nonce,
		State:       StatePending,
	}
	attemptLog := r.log.With().Int("attempt", index).Uint64("nonce", nonce).Str("action", action.Description).Logger()

	result.State = StateBuilding
	txBytes, err := r.signer.Sign(action.Payload, nonce)
	if err != nil {
		attemptLog.Error().Err(err).Msg("❌ failed to build transaction")
		return result.fail(err)
	}

	result.State = StateBroadcasting
	broadcastResult, err := r.ledger.Broadcast(ctx, txBytes)
	if err != nil {
		attemptLog.Error().Err(err).Msg("❌ error broadcasting transaction")
		return result.fail(err)
	}

	if !broadcastResult.Succeeded() {
		err := broadcastResult.Err()
		attemptLog.Error().Err(err).Msg("❌ transaction rejected")
		return result.fail(err)
	}

	result.State = StateSucceeded
	result.TxID = broadcastResult.TxID
	attemptLog.Info().Str("tx_id", result.TxID).Msg("✅ transaction broadcast")
	return result
}

func (r *Runner) nextAction() Action {
	if r.config.Mode == ModeContractCall {
		return r.config.Catalog[r.random.Intn(len(r.config.Catalog))]
	}

	parameters := r.config.Transfer
	recipient := parameters.Recipients[r.random.Intn(len(parameters.Recipients))]
	amount := parameters.MinAmount + uint64(r.random.Intn(int(parameters.MaxAmount-parameters.MinAmount)+1))
	memo := ""
	if len(parameters.Memos) > 0 {
		memo = parameters.Memos[r.random.Intn(len(parameters.Memos))]
	}

	payload := &stacks.TokenTransferPayload{Recipient: recipient, Amount: amount, Memo: memo}
	return Action{Payload: payload, Description: payload.Describe()}
}

// randomBetween is inclusive on both ends.
func (r *Runner) randomBetween(min, max int) int {
	return min + r.random.Intn(max-min+1)
}
