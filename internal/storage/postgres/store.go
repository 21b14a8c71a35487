// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/starknet_randomness/internal/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ storage.HistoryStore = (*Store)(nil)
var _ storage.TxStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to dsn, applies migrations and returns a Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- HistoryStore -----------------------------------------------------------

const entryColumns = `id, seed, mode, tx_hash, status, numbers, error_category, error_message, created_at, updated_at`

type entryRow struct {
	ID            string         `db:"id"`
	Seed          string         `db:"seed"`
	Mode          string         `db:"mode"`
	TxHash        string         `db:"tx_hash"`
	Status        string         `db:"status"`
	Numbers       pq.StringArray `db:"numbers"`
	ErrorCategory string         `db:"error_category"`
	ErrorMessage  string         `db:"error_message"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r entryRow) toEntry() (storage.GenerationEntry, error) {
	numbers, err := decodeNumbers(r.Numbers)
	if err != nil {
		return storage.GenerationEntry{}, fmt.Errorf("entry %s: %w", r.ID, err)
	}
	return storage.GenerationEntry{
		ID:            r.ID,
		Seed:          r.Seed,
		Mode:          r.Mode,
		TxHash:        r.TxHash,
		Status:        storage.Status(r.Status),
		Numbers:       numbers,
		ErrorCategory: r.ErrorCategory,
		ErrorMessage:  r.ErrorMessage,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func (s *Store) CreateEntry(ctx context.Context, entry storage.GenerationEntry) (storage.GenerationEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = storage.StatusPending
	}
	now := s.now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.Seed, entry.Mode, entry.TxHash, string(entry.Status), encodeNumbers(entry.Numbers),
		entry.ErrorCategory, entry.ErrorMessage, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return storage.GenerationEntry{}, err
	}
	return entry, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (storage.GenerationEntry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, `SELECT `+entryColumns+` FROM generation_entries WHERE id = $1`, id)
	if err != nil {
		return storage.GenerationEntry{}, mapErr(err)
	}
	return row.toEntry()
}

func (s *Store) GetEntryByTxHash(ctx context.Context, txHash string) (storage.GenerationEntry, error) {
	if txHash == "" {
		return storage.GenerationEntry{}, storage.ErrNotFound
	}
	var row entryRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+entryColumns+` FROM generation_entries
		WHERE tx_hash = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, txHash)
	if err != nil {
		return storage.GenerationEntry{}, mapErr(err)
	}
	return row.toEntry()
}

func (s *Store) ListEntries(ctx context.Context, limit int) ([]storage.GenerationEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM generation_entries ORDER BY created_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]storage.GenerationEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Store) UpdateEntryStatus(ctx context.Context, id string, upd storage.StatusUpdate) (storage.GenerationEntry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE generation_entries
		SET status = $2,
		    tx_hash = COALESCE(NULLIF($3, ''), tx_hash),
		    error_category = $4,
		    error_message = $5,
		    updated_at = $6
		WHERE id = $1
		RETURNING `+entryColumns,
		id, string(upd.Status), upd.TxHash, upd.ErrorCategory, upd.ErrorMessage, s.now())
	if err != nil {
		return storage.GenerationEntry{}, mapErr(err)
	}
	return row.toEntry()
}

func (s *Store) SetEntryNumbers(ctx context.Context, id string, numbers []uint64) (storage.GenerationEntry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE generation_entries
		SET numbers = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+entryColumns,
		id, encodeNumbers(numbers), s.now())
	if err != nil {
		return storage.GenerationEntry{}, mapErr(err)
	}
	return row.toEntry()
}

// --- TxStore ----------------------------------------------------------------

const txColumns = `id, request_id, kind, entrypoints, calls, tx_hash, status, error_category, error_message, submitted_at, confirmed_at, updated_at`

type txRow struct {
	ID            string         `db:"id"`
	RequestID     string         `db:"request_id"`
	Kind          string         `db:"kind"`
	Entrypoints   pq.StringArray `db:"entrypoints"`
	Calls         []byte         `db:"calls"`
	TxHash        string         `db:"tx_hash"`
	Status        string         `db:"status"`
	ErrorCategory string         `db:"error_category"`
	ErrorMessage  string         `db:"error_message"`
	SubmittedAt   time.Time      `db:"submitted_at"`
	ConfirmedAt   sql.NullTime   `db:"confirmed_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r txRow) toRecord() storage.TxRecord {
	rec := storage.TxRecord{
		ID:            r.ID,
		RequestID:     r.RequestID,
		Kind:          r.Kind,
		Entrypoints:   []string(r.Entrypoints),
		Calls:         r.Calls,
		TxHash:        r.TxHash,
		Status:        storage.Status(r.Status),
		ErrorCategory: r.ErrorCategory,
		ErrorMessage:  r.ErrorMessage,
		SubmittedAt:   r.SubmittedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ConfirmedAt.Valid {
		t := r.ConfirmedAt.Time
		rec.ConfirmedAt = &t
	}
	return rec
}

func (s *Store) CreateTx(ctx context.Context, rec storage.TxRecord) (storage.TxRecord, error) {
	if rec.RequestID == "" {
		return storage.TxRecord{}, fmt.Errorf("request_id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = storage.StatusPending
	}
	now := s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chain_txs (id, request_id, kind, entrypoints, calls, tx_hash, status, error_category, error_message, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (request_id) DO NOTHING
	`, rec.ID, rec.RequestID, rec.Kind, pq.StringArray(rec.Entrypoints), nullJSON(rec.Calls), rec.TxHash,
		string(rec.Status), rec.ErrorCategory, rec.ErrorMessage, now)
	if err != nil {
		return storage.TxRecord{}, err
	}
	return s.GetTxByRequestID(ctx, rec.RequestID)
}

func (s *Store) GetTx(ctx context.Context, id string) (storage.TxRecord, error) {
	var row txRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+txColumns+` FROM chain_txs WHERE id = $1`, id); err != nil {
		return storage.TxRecord{}, mapErr(err)
	}
	return row.toRecord(), nil
}

func (s *Store) GetTxByRequestID(ctx context.Context, requestID string) (storage.TxRecord, error) {
	var row txRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+txColumns+` FROM chain_txs WHERE request_id = $1`, requestID); err != nil {
		return storage.TxRecord{}, mapErr(err)
	}
	return row.toRecord(), nil
}

func (s *Store) UpdateTxStatus(ctx context.Context, id string, upd storage.StatusUpdate) (storage.TxRecord, error) {
	var confirmedAt interface{}
	if upd.ConfirmedAt != nil {
		confirmedAt = upd.ConfirmedAt.UTC()
	}

	var row txRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE chain_txs
		SET status = $2,
		    tx_hash = COALESCE(NULLIF($3, ''), tx_hash),
		    error_category = $4,
		    error_message = $5,
		    confirmed_at = COALESCE($6, confirmed_at),
		    updated_at = $7
		WHERE id = $1
		RETURNING `+txColumns,
		id, string(upd.Status), upd.TxHash, upd.ErrorCategory, upd.ErrorMessage, confirmedAt, s.now())
	if err != nil {
		return storage.TxRecord{}, mapErr(err)
	}
	return row.toRecord(), nil
}

func (s *Store) ListPendingTxs(ctx context.Context, limit int) ([]storage.TxRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	var rows []txRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+txColumns+` FROM chain_txs
		WHERE status = $1
		ORDER BY submitted_at ASC
		LIMIT $2
	`, string(storage.StatusSubmitted), limit)
	if err != nil {
		return nil, err
	}

	out := make([]storage.TxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

// --- helpers ----------------------------------------------------------------

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// Numbers are stored as decimal text so the full u64 range survives.
func encodeNumbers(numbers []uint64) interface{} {
	if numbers == nil {
		return nil
	}
	out := make(pq.StringArray, len(numbers))
	for i, n := range numbers {
		out[i] = strconv.FormatUint(n, 10)
	}
	return out
}

func decodeNumbers(raw pq.StringArray) ([]uint64, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]uint64, len(raw))
	for i, s := range raw {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("number %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
