package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NethermindEth/starknet.go/utils"
)

const (
	// DefaultPollInterval is the status polling interval used by WaitForTransaction.
	DefaultPollInterval = 2 * time.Second
	// DefaultTxWaitTimeout bounds WaitForTransaction when ctx has no deadline.
	DefaultTxWaitTimeout = 2 * time.Minute
)

// =============================================================================
// Contract Calls
// =============================================================================

// CallContract runs a read-only entrypoint on the latest block and returns
// the raw result felts.
func (c *Client) CallContract(ctx context.Context, contractAddress, entrypoint string, calldata []string) ([]string, error) {
	if calldata == nil {
		calldata = []string{}
	}
	params := map[string]interface{}{
		"request": map[string]interface{}{
			"contract_address":     contractAddress,
			"entry_point_selector": utils.GetSelectorFromNameFelt(entrypoint).String(),
			"calldata":             calldata,
		},
		"block_id": "latest",
	}

	result, err := c.Call(ctx, "starknet_call", params)
	if err != nil {
		return nil, err
	}

	var out []string
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("decode call result: %w", err)
	}
	return out, nil
}

// =============================================================================
// Transaction Tracking
// =============================================================================

// GetTransactionStatus returns the finality and execution status of a transaction.
func (c *Client) GetTransactionStatus(ctx context.Context, txHash string) (*TransactionStatus, error) {
	result, err := c.Call(ctx, "starknet_getTransactionStatus", map[string]interface{}{
		"transaction_hash": txHash,
	})
	if err != nil {
		return nil, err
	}

	var status TransactionStatus
	if err := json.Unmarshal(result, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetTransactionReceipt returns the receipt of an accepted transaction.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	result, err := c.Call(ctx, "starknet_getTransactionReceipt", map[string]interface{}{
		"transaction_hash": txHash,
	})
	if err != nil {
		return nil, err
	}

	var receipt Receipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// WaitForTransaction polls the transaction status until it is final or ctx is done.
// An unknown hash is treated as transient, since nodes may not have seen a
// freshly submitted transaction yet.
func (c *Client) WaitForTransaction(ctx context.Context, txHash string, pollInterval time.Duration) (*TransactionStatus, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTxWaitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, err := c.GetTransactionStatus(ctx, txHash)
			if err != nil {
				if IsNotFoundError(err) {
					continue
				}
				return nil, err
			}
			if status.Final() {
				return status, nil
			}
		}
	}
}

// IsNotFoundError reports whether err is the node's unknown-transaction error.
func IsNotFoundError(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == ErrCodeTxHashNotFound
	}
	return false
}
