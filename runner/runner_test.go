package runner_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/serayd61/stacks-tx-runner/log"
	"github.com/serayd61/stacks-tx-runner/rpc"
	"github.com/serayd61/stacks-tx-runner/runner"
	"github.com/serayd61/stacks-tx-runner/signer"
	"github.com/serayd61/stacks-tx-runner/stacks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "ST000000000000000000002AMW42H"

// scriptedRandom replays fixed values, wrapped into range.
type scriptedRandom struct {
	values []int
	calls  int
}

func (s *scriptedRandom) Intn(n int) int {
	value := 0
	if s.calls < len(s.values) {
		value = s.values[s.calls]
	}
	s.calls++
	return value % n
}

// fakeLedger answers broadcasts from a script of response bodies. An entry of "!" is a transport error.
type fakeLedger struct {
	state      *rpc.AccountState
	stateErr   error
	responses  []string
	broadcasts int
}

func (f *fakeLedger) GetAccountState(ctx context.Context, address string) (*rpc.AccountState, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return f.state, nil
}

func (f *fakeLedger) Broadcast(ctx context.Context, txBytes []byte) (*rpc.BroadcastResult, error) {
	response := f.responses[f.broadcasts]
	f.broadcasts++
	if response == "!" {
		return nil, errors.New("connection reset by peer")
	}
	return rpc.ParseBroadcastResponse([]byte(response)), nil
}

// recordingSigner remembers the nonce of every signing request. Payloads described as "unbuildable" fail.
type recordingSigner struct {
	nonces []uint64
}

func (s *recordingSigner) Sign(payload stacks.Payload, nonce uint64) ([]byte, error) {
	s.nonces = append(s.nonces, nonce)
	if payload.Describe() == "unbuildable" {
		return nil, errors.New("cannot build")
	}
	return []byte(fmt.Sprintf("tx-%d", nonce)), nil
}

type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, duration time.Duration) {
	s.sleeps = append(s.sleeps, duration)
}

type describedPayload struct {
	stacks.TokenTransferPayload
	description string
}

func (p *describedPayload) Describe() string {
	return p.description
}

func testConfig(min, max int) runner.Config {
	return runner.Config{
		Address:           testAddress,
		Mode:              runner.ModeContractCall,
		MinTxCount:        min,
		MaxTxCount:        max,
		Fee:               3000,
		BalanceMultiplier: 3,
		Delay:             3 * time.Second,
		Catalog: []runner.Action{
			{Payload: &describedPayload{description: "vote"}, Description: "vote on proposal"},
		},
	}
}

func newTestRunner(t *testing.T, config runner.Config, ledger *fakeLedger, s runner.TransactionSigner, random runner.Random, sleeper *recordingSleeper) *runner.Runner {
	r, err := runner.NewRunner(config, ledger, s, random, sleeper, log.NewNopLogger())
	require.NoError(t, err)
	return r
}

func TestNonceAdvancesOnlyAfterSuccess(t *testing.T) {
	ledger := &fakeLedger{
		state: &rpc.AccountState{Address: testAddress, Balance: 1_000_000, Nonce: 10},
		responses: []string{
			`{"txid":"0x01"}`,
			`{"error":"conflict","reason":"nonce too low"}`,
			`"0x03"`,
			`!`,
			`{"unexpected":true}`,
			`{"txid":"0x06"}`,
		},
	}
	s := &recordingSigner{}
	sleeper := &recordingSleeper{}
	random := &scriptedRandom{values: []int{0}}

	results, err := newTestRunner(t, testConfig(6, 6), ledger, s, random, sleeper).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uint64{10, 11, 11, 12, 12, 12}, s.nonces)
	require.Len(t, results, 6)
	for i, result := range results {
		assert.Equal(t, s.nonces[i], result.Nonce)
		assert.Equal(t, i, result.Attempt)
		assert.Equal(t, "vote on proposal", result.Description)
	}

	assert.Equal(t, []runner.AttemptState{
		runner.StateSucceeded, runner.StateFailed, runner.StateSucceeded,
		runner.StateFailed, runner.StateFailed, runner.StateSucceeded,
	}, []runner.AttemptState{results[0].State, results[1].State, results[2].State, results[3].State, results[4].State, results[5].State})
	assert.Equal(t, 3, results.Successful())
	assert.Equal(t, "0x06", results[5].TxID)
	assert.Empty(t, results[3].TxID)
	assert.EqualError(t, results[3].Err, "connection reset by peer")
}

func TestResultCountMatchesPlanWhenEverythingFails(t *testing.T) {
	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: 1_000_000, Nonce: 4},
		responses: []string{`!`, `!`, `!`, `!`},
	}
	s := &recordingSigner{}
	sleeper := &recordingSleeper{}

	// Bounds [2, 5] with a draw of 2 plan four attempts.
	results, err := newTestRunner(t, testConfig(2, 5), ledger, s, &scriptedRandom{values: []int{2}}, sleeper).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, results, 4)
	assert.Equal(t, 0, results.Successful())
	assert.Equal(t, []uint64{4, 4, 4, 4}, s.nonces)
	assert.Equal(t, 4, ledger.broadcasts)
}

func TestBuildFailureIsRecordedAndRunContinues(t *testing.T) {
	config := testConfig(2, 2)
	config.Catalog = []runner.Action{
		{Payload: &describedPayload{description: "unbuildable"}, Description: "broken"},
		{Payload: &describedPayload{description: "vote"}, Description: "vote"},
	}
	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: 1_000_000, Nonce: 0},
		responses: []string{`"0xaa"`},
	}
	s := &recordingSigner{}

	// count draw, then catalog picks: broken, vote
	random := &scriptedRandom{values: []int{0, 0, 1}}
	results, err := newTestRunner(t, config, ledger, s, random, &recordingSleeper{}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, runner.StateFailed, results[0].State)
	assert.Equal(t, "broken", results[0].Description)
	assert.Equal(t, runner.StateSucceeded, results[1].State)
	assert.Equal(t, uint64(0), results[1].Nonce)
	assert.Equal(t, 1, ledger.broadcasts)
}

func TestTxIDResponseIsRecorded(t *testing.T) {
	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: 1_000_000, Nonce: 7},
		responses: []string{`{"txid":"0xabc"}`, `"0xdef"`},
	}
	s := &recordingSigner{}

	results, err := newTestRunner(t, testConfig(2, 2), ledger, s, &scriptedRandom{}, &recordingSleeper{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "0xabc", results[0].TxID)
	assert.True(t, results[0].Succeeded())
	assert.Equal(t, []uint64{7, 8}, s.nonces)
}

func TestErrorResponseReusesNonce(t *testing.T) {
	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: 1_000_000, Nonce: 7},
		responses: []string{`{"error":"conflict","reason":"nonce too low"}`, `"0xdef"`},
	}
	s := &recordingSigner{}

	results, err := newTestRunner(t, testConfig(2, 2), ledger, s, &scriptedRandom{}, &recordingSleeper{}).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, results[0].TxID)
	assert.False(t, results[0].Succeeded())
	assert.Contains(t, results[0].Err.Error(), "nonce too low")
	assert.Equal(t, []uint64{7, 7}, s.nonces)
}

func TestInsufficientBalanceMakesNoAttempts(t *testing.T) {
	config := testConfig(1, 2)
	ledger := &fakeLedger{
		state: &rpc.AccountState{Address: testAddress, Balance: config.MinimumBalance() - 1, Nonce: 0},
	}
	s := &recordingSigner{}

	results, err := newTestRunner(t, config, ledger, s, &scriptedRandom{}, &recordingSleeper{}).Run(context.Background())
	assert.ErrorIs(t, err, runner.ErrInsufficientBalance)
	assert.Empty(t, results)
	assert.Empty(t, s.nonces)
	assert.Equal(t, 0, ledger.broadcasts)
}

func TestBalanceAtThresholdRuns(t *testing.T) {
	config := testConfig(1, 1)
	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: config.MinimumBalance(), Nonce: 0},
		responses: []string{`"0x01"`},
	}

	results, err := newTestRunner(t, config, ledger, &recordingSigner{}, &scriptedRandom{}, &recordingSleeper{}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMissingSignerMakesNoAttempts(t *testing.T) {
	ledger := &fakeLedger{state: &rpc.AccountState{Address: testAddress, Balance: 1_000_000}}

	r, err := runner.NewRunner(testConfig(1, 2), ledger, nil, &scriptedRandom{}, &recordingSleeper{}, log.NewNopLogger())
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	assert.ErrorIs(t, err, signer.ErrMissingCredential)
	assert.Empty(t, results)
	assert.Equal(t, 0, ledger.broadcasts)
}

func TestAccountStateFailureMakesNoAttempts(t *testing.T) {
	ledger := &fakeLedger{stateErr: errors.New("api down")}

	results, err := newTestRunner(t, testConfig(1, 2), ledger, &recordingSigner{}, &scriptedRandom{}, &recordingSleeper{}).Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, ledger.broadcasts)
}

func TestSleepsBetweenAttemptsOnly(t *testing.T) {
	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: 1_000_000},
		responses: []string{`"0x01"`, `"0x02"`, `"0x03"`},
	}
	sleeper := &recordingSleeper{}

	_, err := newTestRunner(t, testConfig(3, 3), ledger, &recordingSigner{}, &scriptedRandom{}, sleeper).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeper.sleeps)
}

func TestOneOfTwoSummary(t *testing.T) {
	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: 1_000_000, Nonce: 0},
		responses: []string{`{"txid":"a"}`, `{"error":"conflict","reason":"nonce too low"}`},
	}

	// Bounds [1, 2] with a draw of 1 plan two attempts.
	results, err := newTestRunner(t, testConfig(1, 2), ledger, &recordingSigner{}, &scriptedRandom{values: []int{1}}, &recordingSleeper{}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].TxID)
	assert.Equal(t, "", results[1].TxID)
	assert.Equal(t, 1, results.Successful())

	out := &bytes.Buffer{}
	results.PrintSummary(out, "https://explorer.hiro.so", "testnet")
	assert.Contains(t, out.String(), "Successful: 1/2")
	assert.Contains(t, out.String(), "https://explorer.hiro.so/txid/a?chain=testnet")
	assert.Contains(t, out.String(), "✗ [nonce 1] vote on proposal")
}

func TestTransferModePicksRecipientAndAmount(t *testing.T) {
	first := stacks.Address{Version: stacks.AddressVersionTestnetSingleSig, Hash160: [20]byte{1}}
	second := stacks.Address{Version: stacks.AddressVersionTestnetSingleSig, Hash160: [20]byte{2}}

	config := testConfig(1, 1)
	config.Mode = runner.ModeTransfer
	config.Catalog = nil
	config.Transfer = runner.TransferParameters{
		Recipients: []stacks.Address{first, second},
		MinAmount:  1000,
		MaxAmount:  5000,
		Memos:      []string{"a", "b"},
	}
	assert.Equal(t, uint64((1000+3000)*3), config.MinimumBalance())

	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: 1_000_000},
		responses: []string{`"0x01"`},
	}
	payloads := &payloadSigner{}

	// count, recipient, amount offset, memo
	random := &scriptedRandom{values: []int{0, 1, 250, 1}}
	results, err := newTestRunner(t, config, ledger, payloads, random, &recordingSleeper{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.Len(t, payloads.payloads, 1)
	transfer, ok := payloads.payloads[0].(*stacks.TokenTransferPayload)
	require.True(t, ok)
	assert.Equal(t, second, transfer.Recipient)
	assert.Equal(t, uint64(1250), transfer.Amount)
	assert.Equal(t, "b", transfer.Memo)
	assert.Equal(t, transfer.Describe(), results[0].Description)
}

type payloadSigner struct {
	payloads []stacks.Payload
}

func (s *payloadSigner) Sign(payload stacks.Payload, nonce uint64) ([]byte, error) {
	s.payloads = append(s.payloads, payload)
	return []byte{1}, nil
}

func TestConfigIsCopiedAtConstruction(t *testing.T) {
	config := testConfig(1, 1)
	ledger := &fakeLedger{
		state:     &rpc.AccountState{Address: testAddress, Balance: 1_000_000},
		responses: []string{`"0x01"`},
	}

	r := newTestRunner(t, config, ledger, &recordingSigner{}, &scriptedRandom{}, &recordingSleeper{})
	config.Catalog[0] = runner.Action{Payload: &describedPayload{description: "other"}, Description: "changed"}

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vote on proposal", results[0].Description)
}

func TestNewRunnerValidatesConfig(t *testing.T) {
	badBounds := testConfig(3, 2)
	_, err := runner.NewRunner(badBounds, &fakeLedger{}, &recordingSigner{}, &scriptedRandom{}, &recordingSleeper{}, log.NewNopLogger())
	assert.Error(t, err)

	emptyCatalog := testConfig(1, 2)
	emptyCatalog.Catalog = nil
	_, err = runner.NewRunner(emptyCatalog, &fakeLedger{}, &recordingSigner{}, &scriptedRandom{}, &recordingSleeper{}, log.NewNopLogger())
	assert.Error(t, err)

	noRecipients := testConfig(1, 2)
	noRecipients.Mode = runner.ModeTransfer
	_, err = runner.NewRunner(noRecipients, &fakeLedger{}, &recordingSigner{}, &scriptedRandom{}, &recordingSleeper{}, log.NewNopLogger())
	assert.Error(t, err)
}
