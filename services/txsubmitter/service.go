// Package txsubmitter sends call batches to the chain, keeps an audit record
// of every submission and tracks transactions until they are final.
package txsubmitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/starknet_randomness/internal/chain"
	"github.com/R3E-Network/starknet_randomness/internal/logging"
	"github.com/R3E-Network/starknet_randomness/internal/metrics"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/internal/storage"
)

const (
	defaultConfirmSchedule = "@every 5s"
	confirmBatchSize       = 50
)

// Config holds the collaborators of a Service.
type Config struct {
	Submitter randomness.Submitter
	Chain     StatusChecker
	Store     storage.TxStore
	Logger    *logging.Logger
	RateLimit RateLimitConfig
	// ConfirmSchedule is a cron spec for the confirmation sweep.
	ConfirmSchedule string
	// OnStatusChange is called after a record changes status.
	OnStatusChange func(ctx context.Context, rec storage.TxRecord)
}

// Service is the only path by which batches reach the signing account.
type Service struct {
	submitter      randomness.Submitter
	chain          StatusChecker
	store          storage.TxStore
	logger         *logging.Logger
	limiter        *RateLimiter
	schedule       string
	onStatusChange func(ctx context.Context, rec storage.TxRecord)

	cron      *cron.Cron
	cronMu    sync.Mutex
	startTime time.Time
	now       func() time.Time

	txsSubmitted   atomic.Int64
	txsConfirmed   atomic.Int64
	txsFailed      atomic.Int64
	txsRateLimited atomic.Int64
	lastPending    atomic.Int64
}

// New creates a transaction submitter.
func New(cfg Config) (*Service, error) {
	if cfg.Submitter == nil {
		return nil, errors.New("txsubmitter: submitter is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("txsubmitter: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.ConfirmSchedule == "" {
		cfg.ConfirmSchedule = defaultConfirmSchedule
	}
	if _, err := cron.ParseStandard(cfg.ConfirmSchedule); err != nil {
		return nil, fmt.Errorf("txsubmitter: confirm schedule %q: %w", cfg.ConfirmSchedule, err)
	}

	return &Service{
		submitter:      cfg.Submitter,
		chain:          cfg.Chain,
		store:          cfg.Store,
		logger:         cfg.Logger.WithField("component", "txsubmitter"),
		limiter:        NewRateLimiter(cfg.RateLimit),
		schedule:       cfg.ConfirmSchedule,
		onStatusChange: cfg.OnStatusChange,
		startTime:      time.Now(),
		now:            time.Now,
	}, nil
}

// =============================================================================
// Submission
// =============================================================================

// Submit validates batch, records it and executes it exactly once.
// A request id that was already used returns the stored outcome without
// sending the batch again.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*TxResponse, error) {
	if err := req.Batch.Validate(); err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Kind == "" {
		req.Kind = KindRandomness
	}

	if existing, err := s.store.GetTxByRequestID(ctx, req.RequestID); err == nil {
		if existing.Status != storage.StatusPending {
			return responseFor(existing), nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup tx record: %w", err)
	}

	if !s.limiter.Allow(req.Kind) {
		s.txsRateLimited.Add(1)
		return nil, ErrRateLimited
	}

	calls, err := json.Marshal(req.Batch)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	rec, err := s.store.CreateTx(ctx, storage.TxRecord{
		RequestID:   req.RequestID,
		Kind:        req.Kind,
		Entrypoints: req.Batch.Entrypoints(),
		Calls:       calls,
		Status:      storage.StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create tx record: %w", err)
	}

	label := batchLabel(req.Batch)
	start := time.Now()
	hash, execErr := s.submitter.Execute(ctx, req.Batch)
	if execErr == nil && hash == "" {
		execErr = ErrEmptyHash
	}

	if execErr != nil {
		classified := randomness.Classify(execErr)
		metrics.RecordSubmission(label, "error", time.Since(start))
		metrics.RecordErrorCategory(string(classified.Category))
		s.txsFailed.Add(1)

		updated, err := s.store.UpdateTxStatus(ctx, rec.ID, storage.StatusUpdate{
			Status:        storage.StatusFailed,
			ErrorCategory: string(classified.Category),
			ErrorMessage:  classified.Message,
		})
		if err != nil {
			s.logger.Error(ctx, "failed to record submission failure", err, map[string]interface{}{"tx_id": rec.ID})
		} else {
			s.notify(ctx, updated)
		}
		s.logger.Warn(ctx, "batch submission failed", map[string]interface{}{
			"request_id": req.RequestID,
			"category":   classified.Category,
			"error":      execErr.Error(),
		})
		return nil, classified
	}

	metrics.RecordSubmission(label, "submitted", time.Since(start))
	s.txsSubmitted.Add(1)

	updated, err := s.store.UpdateTxStatus(ctx, rec.ID, storage.StatusUpdate{
		Status: storage.StatusSubmitted,
		TxHash: hash,
	})
	if err != nil {
		// The transaction is on its way; losing the audit update must not hide the hash.
		s.logger.Error(ctx, "failed to record submitted tx", err, map[string]interface{}{"tx_id": rec.ID, "tx_hash": hash})
		rec.Status = storage.StatusSubmitted
		rec.TxHash = hash
		return responseFor(rec), nil
	}

	s.logger.Info(ctx, "batch submitted", map[string]interface{}{
		"request_id":  req.RequestID,
		"tx_hash":     hash,
		"entrypoints": updated.Entrypoints,
	})
	s.notify(ctx, updated)
	return responseFor(updated), nil
}

// Execute implements randomness.Submitter so a Session can drive the service.
func (s *Service) Execute(ctx context.Context, batch randomness.CallBatch) (string, error) {
	resp, err := s.Submit(ctx, SubmitRequest{Kind: KindRandomness, Batch: batch})
	if err != nil {
		return "", err
	}
	return resp.TxHash, nil
}

// =============================================================================
// Confirmation
// =============================================================================

// Start schedules the confirmation sweep. It is a no-op without a chain client.
func (s *Service) Start(ctx context.Context) error {
	if s.chain == nil {
		s.logger.Warn(ctx, "no chain client configured, confirmation tracking disabled", nil)
		return nil
	}

	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() {
		if err := s.ConfirmPending(ctx); err != nil {
			s.logger.Error(ctx, "confirmation sweep failed", err, nil)
		}
	}); err != nil {
		return fmt.Errorf("schedule confirmation sweep: %w", err)
	}
	c.Start()
	s.cron = c

	s.logger.Info(ctx, "confirmation tracking started", map[string]interface{}{"schedule": s.schedule})
	return nil
}

// Stop halts the sweep and waits for a running one to finish.
func (s *Service) Stop() {
	s.cronMu.Lock()
	c := s.cron
	s.cron = nil
	s.cronMu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// ConfirmPending checks every submitted transaction once and records final outcomes.
func (s *Service) ConfirmPending(ctx context.Context) error {
	if s.chain == nil {
		return nil
	}

	pending, err := s.store.ListPendingTxs(ctx, confirmBatchSize)
	if err != nil {
		return fmt.Errorf("list pending txs: %w", err)
	}
	s.lastPending.Store(int64(len(pending)))

	for i := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.confirmOne(ctx, pending[i])
	}
	return nil
}

func (s *Service) confirmOne(ctx context.Context, rec storage.TxRecord) {
	status, err := s.chain.GetTransactionStatus(ctx, rec.TxHash)
	if err != nil {
		if !chain.IsNotFoundError(err) {
			s.logger.Warn(ctx, "tx status lookup failed", map[string]interface{}{"tx_hash": rec.TxHash, "error": err.Error()})
		}
		return
	}
	if !status.Final() {
		return
	}

	var upd storage.StatusUpdate
	if status.Succeeded() {
		now := s.now()
		upd = storage.StatusUpdate{Status: storage.StatusConfirmed, ConfirmedAt: &now}
	} else {
		reason := status.FailureReason
		if reason == "" {
			reason = fmt.Sprintf("transaction %s (%s)", status.FinalityStatus, status.ExecutionStatus)
		}
		classified := randomness.Classify(errors.New(reason))
		upd = storage.StatusUpdate{
			Status:        storage.StatusFailed,
			ErrorCategory: string(classified.Category),
			ErrorMessage:  reason,
		}
	}

	updated, err := s.store.UpdateTxStatus(ctx, rec.ID, upd)
	if err != nil {
		s.logger.Error(ctx, "failed to record tx outcome", err, map[string]interface{}{"tx_id": rec.ID})
		return
	}

	metrics.RecordConfirmation(string(upd.Status))
	if upd.Status == storage.StatusConfirmed {
		s.txsConfirmed.Add(1)
	} else {
		s.txsFailed.Add(1)
	}
	s.logger.Info(ctx, "tx finalised", map[string]interface{}{
		"tx_hash": rec.TxHash,
		"status":  upd.Status,
	})
	s.notify(ctx, updated)
}

// =============================================================================
// Stats
// =============================================================================

// Stats returns service counters.
func (s *Service) Stats() Stats {
	return Stats{
		Submitted:   s.txsSubmitted.Load(),
		Confirmed:   s.txsConfirmed.Load(),
		Failed:      s.txsFailed.Load(),
		RateLimited: s.txsRateLimited.Load(),
		Pending:     int(s.lastPending.Load()),
		Uptime:      time.Since(s.startTime).Round(time.Second).String(),
		RateLimit:   s.limiter.Status(),
	}
}

func (s *Service) notify(ctx context.Context, rec storage.TxRecord) {
	if s.onStatusChange != nil {
		s.onStatusChange(ctx, rec)
	}
}

func responseFor(rec storage.TxRecord) *TxResponse {
	return &TxResponse{
		ID:          rec.ID,
		RequestID:   rec.RequestID,
		TxHash:      rec.TxHash,
		Status:      rec.Status,
		Error:       rec.ErrorMessage,
		SubmittedAt: rec.SubmittedAt,
	}
}

// batchLabel names the batch shape for metrics.
func batchLabel(batch randomness.CallBatch) string {
	switch {
	case len(batch) == 2:
		return "production"
	case len(batch) == 1 && batch[0].Entrypoint() == randomness.EntrypointDevnetGenerate:
		return "devnet"
	default:
		return "admin"
	}
}
