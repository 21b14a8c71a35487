package randomnesssvc

import (
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/internal/storage"
	"github.com/R3E-Network/starknet_randomness/internal/wallet"
)

// GenerateRequest is the body of POST /randomness and POST /randomness/preview.
type GenerateRequest struct {
	Seed string `json:"seed"`
	// Mode overrides the configured mode. Empty uses the configured one.
	Mode string `json:"mode,omitempty"`
	// FeeLimit and PublishDelay apply to production-safe only.
	FeeLimit     uint64 `json:"fee_limit,omitempty"`
	PublishDelay uint64 `json:"publish_delay,omitempty"`
	// RequestID makes retries of the same HTTP request idempotent.
	RequestID string `json:"request_id,omitempty"`
}

// PreviewResponse shows the calls a request would submit.
type PreviewResponse struct {
	Mode  randomness.Mode      `json:"mode"`
	Calls randomness.CallBatch `json:"calls"`
}

// GenerateResponse is returned after a successful submission.
type GenerateResponse struct {
	ID     string          `json:"id"`
	TxHash string          `json:"tx_hash"`
	Mode   randomness.Mode `json:"mode"`
}

// HistoryResponse lists generation entries newest first.
type HistoryResponse struct {
	Entries []storage.GenerationEntry `json:"entries"`
	Count   int                       `json:"count"`
}

// NumbersResponse carries the numbers recorded for a generation.
type NumbersResponse struct {
	GenerationID uint64   `json:"generation_id"`
	Numbers      []uint64 `json:"numbers"`
	Cached       bool     `json:"cached"`
}

// CoordinatorRequest is the body of POST /admin/vrf-coordinator.
type CoordinatorRequest struct {
	Address string `json:"address"`
}

// TxHashResponse reports a submitted admin transaction.
type TxHashResponse struct {
	TxHash string `json:"tx_hash"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Wallet        wallet.Status   `json:"wallet"`
	TargetNetwork string          `json:"target_network"`
	Mode          randomness.Mode `json:"mode"`
	WriteDisabled bool            `json:"write_disabled"`
	Reason        string          `json:"reason,omitempty"`
	Consumer      string          `json:"consumer_address"`
	VRFProvider   string          `json:"vrf_provider_address,omitempty"`
	Submitting    bool            `json:"submitting"`
	LatestBlock   uint64          `json:"latest_block,omitempty"`
	Submitter     any             `json:"submitter,omitempty"`
}
