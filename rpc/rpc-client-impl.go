package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/serayd61/stacks-tx-runner/log"
)

// Largest response body we bother reading.
const maxResponseBytes = 1 << 20

// ledgerClientImpl is the default implementation against the Hiro-style REST API.
type ledgerClientImpl struct {
	apiURL     string
	httpClient *http.Client

	attempts retry.Option
	delay    retry.Option

	log *log.Logger
}

// Ensure that ledgerClientImpl implements LedgerClient
var _ LedgerClient = (*ledgerClientImpl)(nil)

// NewLedgerClient makes a new LedgerClient. Reads are retried, broadcasts never are.
func NewLedgerClient(apiURL string, retryAttempts uint, retryDelay time.Duration, timeout time.Duration, log *log.Logger) LedgerClient {
	// Zero attempts means retry forever to retry-go.
	if retryAttempts == 0 {
		retryAttempts = 1
	}

	return &ledgerClientImpl{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: &http.Client{Timeout: timeout},

		attempts: retry.Attempts(retryAttempts),
		delay:    retry.Delay(retryDelay),

		log: log,
	}
}

func (c *ledgerClientImpl) GetAccountState(ctx context.Context, address string) (*AccountState, error) {
	var accountState *AccountState
	var err error

	err = retry.Do(func() error {
		accountState, err = c.getAccountState(ctx, address)
		return err
	}, c.delay, c.attempts, retry.Context(ctx), retry.LastErrorOnly(true))

	return accountState, err
}

// private function without retries
func (c *ledgerClientImpl) getAccountState(ctx context.Context, address string) (*AccountState, error) {
	var nonces struct {
		PossibleNextNonce uint64 `json:"possible_next_nonce"`
	}
	err := c.getJSON(ctx, fmt.Sprintf("%s/extended/v1/address/%s/nonces", c.apiURL, address), &nonces)
	if err != nil {
		c.log.Error().Err(err).Str("address", address).Msg("failed to fetch nonce")
		return nil, err
	}

	var balances struct {
		Balance string `json:"balance"`
	}
	err = c.getJSON(ctx, fmt.Sprintf("%s/extended/v1/address/%s/stx", c.apiURL, address), &balances)
	if err != nil {
		c.log.Error().Err(err).Str("address", address).Msg("failed to fetch balance")
		return nil, err
	}

	balance := uint64(0)
	if balances.Balance != "" {
		balance, err = strconv.ParseUint(balances.Balance, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unparseable balance %q: %w", balances.Balance, err)
		}
	}

	return &AccountState{
		Address: address,
		Balance: balance,
		Nonce:   nonces.PossibleNextNonce,
	}, nil
}

func (c *ledgerClientImpl) Broadcast(ctx context.Context, txBytes []byte) (*BroadcastResult, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v2/transactions", bytes.NewReader(txBytes))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/octet-stream")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	result := ParseBroadcastResponse(body)
	if result.Succeeded() && response.StatusCode != http.StatusOK {
		// A txid alongside a failing status is not an acceptance.
		return &BroadcastResult{Raw: string(body), Error: fmt.Sprintf("http status %d", response.StatusCode)}, nil
	}
	return result, nil
}

// ParseBroadcastResponse interprets a broadcast response body. Accepted shapes are a bare
// JSON string id, an object with a "txid" field, or an object with an "error" field and
// optional "reason". An error field wins over a txid since rejections echo the txid back.
func ParseBroadcastResponse(body []byte) *BroadcastResult {
	trimmed := bytes.TrimSpace(body)

	var txID string
	if err := json.Unmarshal(trimmed, &txID); err == nil {
		if txID == "" {
			return &BroadcastResult{Raw: string(trimmed)}
		}
		return &BroadcastResult{TxID: txID}
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &object); err != nil || object == nil {
		return &BroadcastResult{Raw: string(trimmed)}
	}

	if rawError, ok := object["error"]; ok {
		result := &BroadcastResult{Error: jsonText(rawError), Raw: string(trimmed)}
		if result.Error == "" {
			result.Error = "unknown error"
		}
		if rawReason, ok := object["reason"]; ok {
			result.Reason = jsonText(rawReason)
		}
		return result
	}

	if rawTxID, ok := object["txid"]; ok {
		txID := jsonText(rawTxID)
		if txID != "" {
			return &BroadcastResult{TxID: txID}
		}
	}

	return &BroadcastResult{Raw: string(trimmed)}
}

// jsonText renders a JSON value as plain text, unquoting strings.
func jsonText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

func (c *ledgerClientImpl) getJSON(ctx context.Context, url string, target interface{}) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-OK HTTP status: %d", response.StatusCode)
	}

	return json.NewDecoder(io.LimitReader(response.Body, maxResponseBytes)).Decode(target)
}
