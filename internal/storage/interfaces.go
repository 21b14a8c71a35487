// Package storage defines persistence for generation history and submitted
// transactions.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Final reports whether the status no longer changes.
func (s Status) Final() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// GenerationEntry is one randomness request as seen by the user: the seed,
// the mode it ran in, the resulting transaction and, once read back, the numbers.
type GenerationEntry struct {
	ID            string    `json:"id"`
	Seed          string    `json:"seed"`
	Mode          string    `json:"mode"`
	TxHash        string    `json:"tx_hash,omitempty"`
	Status        Status    `json:"status"`
	Numbers       []uint64  `json:"numbers,omitempty"`
	ErrorCategory string    `json:"error_category,omitempty"`
	ErrorMessage  string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TxRecord is the audit record of one submitted call batch.
type TxRecord struct {
	ID            string          `json:"id"`
	RequestID     string          `json:"request_id"`
	Kind          string          `json:"kind"`
	Entrypoints   []string        `json:"entrypoints"`
	Calls         json.RawMessage `json:"calls,omitempty"`
	TxHash        string          `json:"tx_hash,omitempty"`
	Status        Status          `json:"status"`
	ErrorCategory string          `json:"error_category,omitempty"`
	ErrorMessage  string          `json:"error,omitempty"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StatusUpdate changes the status of an entry or record. Empty TxHash keeps
// the stored hash.
type StatusUpdate struct {
	Status        Status
	TxHash        string
	ErrorCategory string
	ErrorMessage  string
	ConfirmedAt   *time.Time
}

// HistoryStore persists generation history.
type HistoryStore interface {
	CreateEntry(ctx context.Context, entry GenerationEntry) (GenerationEntry, error)
	GetEntry(ctx context.Context, id string) (GenerationEntry, error)
	GetEntryByTxHash(ctx context.Context, txHash string) (GenerationEntry, error)
	// ListEntries returns entries newest first. limit <= 0 means no limit.
	ListEntries(ctx context.Context, limit int) ([]GenerationEntry, error)
	UpdateEntryStatus(ctx context.Context, id string, upd StatusUpdate) (GenerationEntry, error)
	SetEntryNumbers(ctx context.Context, id string, numbers []uint64) (GenerationEntry, error)
}

// TxStore persists transaction audit records.
type TxStore interface {
	// CreateTx is idempotent on RequestID: a second call returns the first record.
	CreateTx(ctx context.Context, rec TxRecord) (TxRecord, error)
	GetTx(ctx context.Context, id string) (TxRecord, error)
	GetTxByRequestID(ctx context.Context, requestID string) (TxRecord, error)
	UpdateTxStatus(ctx context.Context, id string, upd StatusUpdate) (TxRecord, error)
	// ListPendingTxs returns submitted records awaiting confirmation, oldest first.
	ListPendingTxs(ctx context.Context, limit int) ([]TxRecord, error)
}
