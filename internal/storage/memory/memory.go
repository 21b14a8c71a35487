package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/starknet_randomness/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu          sync.RWMutex
	seq         int64
	entries     map[string]storage.GenerationEntry
	entryOrder  map[string]int64
	txs         map[string]storage.TxRecord
	txByRequest map[string]string
	now         func() time.Time
}

var _ storage.HistoryStore = (*Store)(nil)
var _ storage.TxStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		entries:     make(map[string]storage.GenerationEntry),
		entryOrder:  make(map[string]int64),
		txs:         make(map[string]storage.TxRecord),
		txByRequest: make(map[string]string),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HistoryStore implementation -------------------------------------------------

func (s *Store) CreateEntry(_ context.Context, entry storage.GenerationEntry) (storage.GenerationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	} else if _, exists := s.entries[entry.ID]; exists {
		return storage.GenerationEntry{}, fmt.Errorf("entry %s already exists", entry.ID)
	}
	if entry.Status == "" {
		entry.Status = storage.StatusPending
	}
	now := s.now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.Numbers = cloneNumbers(entry.Numbers)

	s.seq++
	s.entries[entry.ID] = entry
	s.entryOrder[entry.ID] = s.seq
	return cloneEntry(entry), nil
}

func (s *Store) GetEntry(_ context.Context, id string) (storage.GenerationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return storage.GenerationEntry{}, storage.ErrNotFound
	}
	return cloneEntry(entry), nil
}

func (s *Store) GetEntryByTxHash(_ context.Context, txHash string) (storage.GenerationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if txHash != "" && entry.TxHash == txHash {
			return cloneEntry(entry), nil
		}
	}
	return storage.GenerationEntry{}, storage.ErrNotFound
}

func (s *Store) ListEntries(_ context.Context, limit int) ([]storage.GenerationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.GenerationEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, cloneEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool {
		return s.entryOrder[out[i].ID] > s.entryOrder[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateEntryStatus(_ context.Context, id string, upd storage.StatusUpdate) (storage.GenerationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return storage.GenerationEntry{}, storage.ErrNotFound
	}
	entry.Status = upd.Status
	if upd.TxHash != "" {
		entry.TxHash = upd.TxHash
	}
	entry.ErrorCategory = upd.ErrorCategory
	entry.ErrorMessage = upd.ErrorMessage
	entry.UpdatedAt = s.now()
	s.entries[id] = entry
	return cloneEntry(entry), nil
}

func (s *Store) SetEntryNumbers(_ context.Context, id string, numbers []uint64) (storage.GenerationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return storage.GenerationEntry{}, storage.ErrNotFound
	}
	entry.Numbers = cloneNumbers(numbers)
	entry.UpdatedAt = s.now()
	s.entries[id] = entry
	return cloneEntry(entry), nil
}

// TxStore implementation ------------------------------------------------------

func (s *Store) CreateTx(_ context.Context, rec storage.TxRecord) (storage.TxRecord, error) {
	if rec.RequestID == "" {
		return storage.TxRecord{}, fmt.Errorf("request_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.txByRequest[rec.RequestID]; ok {
		return cloneTx(s.txs[id]), nil
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = storage.StatusPending
	}
	now := s.now()
	rec.SubmittedAt = now
	rec.UpdatedAt = now
	rec = cloneTx(rec)

	s.txs[rec.ID] = rec
	s.txByRequest[rec.RequestID] = rec.ID
	return cloneTx(rec), nil
}

func (s *Store) GetTx(_ context.Context, id string) (storage.TxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.txs[id]
	if !ok {
		return storage.TxRecord{}, storage.ErrNotFound
	}
	return cloneTx(rec), nil
}

func (s *Store) GetTxByRequestID(_ context.Context, requestID string) (storage.TxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.txByRequest[requestID]
	if !ok {
		return storage.TxRecord{}, storage.ErrNotFound
	}
	return cloneTx(s.txs[id]), nil
}

func (s *Store) UpdateTxStatus(_ context.Context, id string, upd storage.StatusUpdate) (storage.TxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.txs[id]
	if !ok {
		return storage.TxRecord{}, storage.ErrNotFound
	}
	rec.Status = upd.Status
	if upd.TxHash != "" {
		rec.TxHash = upd.TxHash
	}
	rec.ErrorCategory = upd.ErrorCategory
	rec.ErrorMessage = upd.ErrorMessage
	if upd.ConfirmedAt != nil {
		t := *upd.ConfirmedAt
		rec.ConfirmedAt = &t
	}
	rec.UpdatedAt = s.now()
	s.txs[id] = rec
	return cloneTx(rec), nil
}

func (s *Store) ListPendingTxs(_ context.Context, limit int) ([]storage.TxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.TxRecord
	for _, rec := range s.txs {
		if rec.Status == storage.StatusSubmitted {
			out = append(out, cloneTx(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// helpers ---------------------------------------------------------------------

func cloneNumbers(in []uint64) []uint64 {
	if in == nil {
		return nil
	}
	return append([]uint64(nil), in...)
}

func cloneEntry(e storage.GenerationEntry) storage.GenerationEntry {
	e.Numbers = cloneNumbers(e.Numbers)
	return e
}

func cloneTx(r storage.TxRecord) storage.TxRecord {
	if r.Entrypoints != nil {
		r.Entrypoints = append([]string(nil), r.Entrypoints...)
	}
	if r.Calls != nil {
		r.Calls = append([]byte(nil), r.Calls...)
	}
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		r.ConfirmedAt = &t
	}
	return r
}
