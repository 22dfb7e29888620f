package runner

import (
	"fmt"
	"io"
	"strings"
)

// AttemptState tracks an attempt from selection to outcome.
type AttemptState string

const (
	StatePending      AttemptState = "PENDING"
	StateBuilding     AttemptState = "BUILDING"
	StateBroadcasting AttemptState = "BROADCASTING"
	StateSucceeded    AttemptState = "SUCCEEDED"
	StateFailed       AttemptState = "FAILED"
)

// Result is the outcome of one attempt. TxID is empty unless the attempt succeeded.
type Result struct {
	Attempt     int
	Description string
	Nonce       uint64
	State       AttemptState
	TxID        string
	Err         error
}

func (r *Result) Succeeded() bool {
	return r.State == StateSucceeded
}

func (r *Result) fail(err error) *Result {
	r.State = StateFailed
	r.TxID = ""
	r.Err = err
	return r
}

// Results are kept in attempt order.
type Results []*Result

// Successful counts attempts that were accepted.
func (rs Results) Successful() int {
	successful := 0
	for _, result := range rs {
		if result.Succeeded() {
			successful++
		}
	}
	return successful
}

// PrintSummary writes a human readable report. An empty explorerURL omits explorer links.
func (rs Results) PrintSummary(w io.Writer, explorerURL, network string) {
	divider := strings.Repeat("=", 60)

	fmt.Fprintln(w)
	fmt.Fprintln(w, divider)
	fmt.Fprintln(w, "Transaction Summary")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "Successful: %d/%d\n", rs.Successful(), len(rs))

	for _, result := range rs {
		if result.Succeeded() {
			fmt.Fprintf(w, "  ✓ [nonce %d] %s\n", result.Nonce, result.Description)
			fmt.Fprintf(w, "     %s\n", result.TxID)
			if explorerURL != "" {
				fmt.Fprintf(w, "     %s/txid/%s?chain=%s\n", strings.TrimSuffix(explorerURL, "/"), result.TxID, network)
			}
		} else {
			fmt.Fprintf(w, "  ✗ [nonce %d] %s\n", result.Nonce, result.Description)
			if result.Err != nil {
				fmt.Fprintf(w, "     %s\n", result.Err.Error())
			}
		}
	}
}
