package txsubmitter

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/starknet_randomness/internal/chain"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/internal/storage"
)

// Submission kinds recorded in the audit trail.
const (
	KindRandomness = "randomness"
	KindAdmin      = "admin"
)

var (
	ErrRateLimited = errors.New("txsubmitter: rate limit exceeded")
	ErrEmptyHash   = errors.New("submission returned no transaction hash")
)

// StatusChecker reads transaction status from the chain.
type StatusChecker interface {
	GetTransactionStatus(ctx context.Context, txHash string) (*chain.TransactionStatus, error)
}

// SubmitRequest is one batch to send.
type SubmitRequest struct {
	// RequestID makes submission idempotent. Empty generates one.
	RequestID string
	Kind      string
	Batch     randomness.CallBatch
}

// TxResponse reports the outcome of Submit.
type TxResponse struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"request_id"`
	TxHash      string         `json:"tx_hash,omitempty"`
	Status      storage.Status `json:"status"`
	Error       string         `json:"error,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// Stats summarises the service's activity since start.
type Stats struct {
	Submitted   int64          `json:"txs_submitted"`
	Confirmed   int64          `json:"txs_confirmed"`
	Failed      int64          `json:"txs_failed"`
	RateLimited int64          `json:"txs_rate_limited"`
	Pending     int            `json:"pending_txs"`
	Uptime      string         `json:"uptime"`
	RateLimit   map[string]any `json:"rate_limit"`
}
