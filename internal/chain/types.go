package chain

import (
	"encoding/json"
	"fmt"

	"github.com/R3E-Network/starknet_randomness/internal/felt"
)

// =============================================================================
// JSON-RPC Envelope
// =============================================================================

// RPCRequest represents a JSON-RPC request.
type RPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

// RPCResponse represents a JSON-RPC response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return fmt.Sprintf("RPC error %d: %s: %s", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Starknet error codes the client reacts to.
const (
	ErrCodeContractNotFound   = 20
	ErrCodeBlockNotFound      = 24
	ErrCodeTxHashNotFound     = 29
	ErrCodeContractError      = 40
	ErrCodeTransactionExecErr = 41
)

// =============================================================================
// Transactions
// =============================================================================

// Finality and execution statuses.
const (
	StatusReceived     = "RECEIVED"
	StatusRejected     = "REJECTED"
	StatusAcceptedOnL2 = "ACCEPTED_ON_L2"
	StatusAcceptedOnL1 = "ACCEPTED_ON_L1"

	ExecutionSucceeded = "SUCCEEDED"
	ExecutionReverted  = "REVERTED"
)

// TransactionStatus is the result of starknet_getTransactionStatus.
type TransactionStatus struct {
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}

// Accepted reports whether the transaction is on L2 or L1.
func (s TransactionStatus) Accepted() bool {
	return s.FinalityStatus == StatusAcceptedOnL2 || s.FinalityStatus == StatusAcceptedOnL1
}

// Final reports whether no further status change is expected for tracking purposes.
func (s TransactionStatus) Final() bool {
	return s.Accepted() || s.FinalityStatus == StatusRejected
}

// Succeeded reports whether the transaction was accepted and did not revert.
func (s TransactionStatus) Succeeded() bool {
	return s.Accepted() && s.ExecutionStatus != ExecutionReverted
}

// FeePayment is the fee charged for a transaction.
type FeePayment struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// String renders the amount in decimal followed by its unit.
func (f FeePayment) String() string {
	amount := f.Amount
	if v, err := felt.ParseHex(f.Amount); err == nil {
		amount = v.String()
	}
	if f.Unit == "" {
		return amount
	}
	return amount + " " + f.Unit
}

// Event is an event emitted by a transaction.
type Event struct {
	FromAddress string   `json:"from_address"`
	Keys        []string `json:"keys"`
	Data        []string `json:"data"`
}

// Receipt is the result of starknet_getTransactionReceipt.
type Receipt struct {
	Type            string     `json:"type"`
	TransactionHash string     `json:"transaction_hash"`
	ActualFee       FeePayment `json:"actual_fee"`
	ExecutionStatus string     `json:"execution_status"`
	FinalityStatus  string     `json:"finality_status"`
	BlockHash       string     `json:"block_hash,omitempty"`
	BlockNumber     uint64     `json:"block_number,omitempty"`
	RevertReason    string     `json:"revert_reason,omitempty"`
	Events          []Event    `json:"events"`
}
