package randomnesssvc

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/starknet_randomness/internal/cache"
	"github.com/R3E-Network/starknet_randomness/internal/httputil"
	"github.com/R3E-Network/starknet_randomness/internal/middleware"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/internal/storage"
	"github.com/R3E-Network/starknet_randomness/services/txsubmitter"
)

// =============================================================================
// HTTP Handlers
// =============================================================================

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceID,
		"version": Version,
	})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, env, err := s.environment(r.Context())
	if err != nil {
		s.logger.Warn(r.Context(), "wallet status unavailable", map[string]interface{}{"error": err.Error()})
	}

	mode, _ := s.resolveMode("", status.NetworkName)
	resp := StatusResponse{
		Wallet:        status,
		TargetNetwork: s.targetNetwork,
		Mode:          mode,
		Consumer:      s.params.ConsumerAddress,
		Submitting:    s.submitting.Load(),
	}
	if mode.IsProduction() {
		resp.VRFProvider = s.params.VRFProviderAddress
	}
	if err == nil {
		err = env.Check()
	}
	if err != nil {
		resp.WriteDisabled = true
		resp.Reason = err.Error()
	}
	if s.blocks != nil {
		if block, err := s.blocks.BlockNumber(r.Context()); err == nil {
			resp.LatestBlock = block
		} else {
			s.logger.Warn(r.Context(), "block number unavailable", map[string]interface{}{"error": err.Error()})
		}
	}
	if s.stats != nil {
		resp.Submitter = s.stats()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Service) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := s.validateRequest(req); err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	status, _ := s.wallet.Status(r.Context())
	mode, batch, err := s.buildBatch(req, status.NetworkName)
	if err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PreviewResponse{Mode: mode, Calls: batch})
}

func (s *Service) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := s.validateRequest(req); err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if req.RequestID != "" {
		if existing, err := s.history.GetEntry(ctx, req.RequestID); err == nil {
			s.writeReplay(w, existing)
			return
		}
	}

	status, env, err := s.environment(ctx)
	if err != nil {
		httputil.ServiceUnavailable(w, "wallet unavailable: "+err.Error())
		return
	}
	mode, batch, err := s.buildBatch(req, status.NetworkName)
	if err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	if err := env.Check(); err != nil {
		httputil.WriteErrorResponse(w, http.StatusPreconditionFailed, "write_disabled", err.Error(), nil)
		return
	}

	if !s.submitting.CompareAndSwap(false, true) {
		httputil.Conflict(w, randomness.ErrSubmissionInProgress.Error())
		return
	}
	defer s.submitting.Store(false)

	entry, err := s.history.CreateEntry(ctx, storage.GenerationEntry{
		ID:     req.RequestID,
		Seed:   req.Seed,
		Mode:   string(mode),
		Status: storage.StatusPending,
	})
	if err != nil {
		s.logger.Error(ctx, "failed to create history entry", err, nil)
		httputil.InternalError(w, "failed to record request")
		return
	}

	resp, err := s.submitter.Submit(ctx, txsubmitter.SubmitRequest{
		RequestID: entry.ID,
		Kind:      txsubmitter.KindRandomness,
		Batch:     batch,
	})
	if err != nil {
		s.failEntry(ctx, entry.ID, err)
		s.writeSubmitError(w, err)
		return
	}

	s.markSubmitted(ctx, entry.ID, resp.TxHash)
	s.logger.Info(ctx, "randomness requested", map[string]interface{}{
		"entry_id": entry.ID,
		"mode":     mode,
		"tx_hash":  resp.TxHash,
	})
	httputil.WriteJSON(w, http.StatusAccepted, GenerateResponse{ID: entry.ID, TxHash: resp.TxHash, Mode: mode})
}

func (s *Service) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.history.ListEntries(r.Context(), limit)
	if err != nil {
		s.logger.Error(r.Context(), "failed to list history", err, nil)
		httputil.InternalError(w, "failed to list history")
		return
	}
	if entries == nil {
		entries = []storage.GenerationEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}

func (s *Service) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, err := s.history.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.NotFound(w, "history entry not found")
			return
		}
		httputil.InternalError(w, "failed to load history entry")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (s *Service) handleGetNumbers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httputil.BadRequest(w, "generation id must be a non-negative integer")
		return
	}

	consumer := s.params.ConsumerAddress
	numbers, err := s.cache.Get(ctx, consumer, id)
	cached := err == nil
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn(ctx, "numbers cache read failed", map[string]interface{}{"error": err.Error()})
		}
		if s.numbers == nil {
			httputil.ServiceUnavailable(w, "chain client not configured")
			return
		}
		numbers, err = s.numbers.GetGenerationNumbers(ctx, id)
		if err != nil {
			classified := randomness.Classify(err)
			httputil.WriteErrorResponse(w, http.StatusBadGateway, string(classified.Category), classified.Message, nil)
			return
		}
		if err := s.cache.Set(ctx, consumer, id, numbers); err != nil {
			s.logger.Warn(ctx, "numbers cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if entryID := r.URL.Query().Get("entry"); entryID != "" {
		if _, err := s.history.SetEntryNumbers(ctx, entryID, numbers); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httputil.NotFound(w, "history entry not found")
				return
			}
			s.logger.Error(ctx, "failed to attach numbers to entry", err, map[string]interface{}{"entry_id": entryID})
		}
	}

	if numbers == nil {
		numbers = []uint64{}
	}
	httputil.WriteJSON(w, http.StatusOK, NumbersResponse{GenerationID: id, Numbers: numbers, Cached: cached})
}

func (s *Service) handleSetCoordinator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CoordinatorRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	call, err := randomness.SetVRFCoordinatorCall(s.params.ConsumerAddress, req.Address)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	_, env, err := s.environment(ctx)
	if err != nil {
		httputil.ServiceUnavailable(w, "wallet unavailable: "+err.Error())
		return
	}
	if err := env.Check(); err != nil {
		httputil.WriteErrorResponse(w, http.StatusPreconditionFailed, "write_disabled", err.Error(), nil)
		return
	}

	resp, err := s.submitter.Submit(ctx, txsubmitter.SubmitRequest{
		Kind:  txsubmitter.KindAdmin,
		Batch: randomness.CallBatch{call},
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}

	s.logger.Info(ctx, "vrf coordinator update submitted", map[string]interface{}{
		"coordinator": req.Address,
		"caller":      middleware.GetServiceID(ctx),
		"tx_hash":     resp.TxHash,
	})
	httputil.WriteJSON(w, http.StatusAccepted, TxHashResponse{TxHash: resp.TxHash})
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Service) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, txsubmitter.ErrRateLimited):
		httputil.TooManyRequests(w, "submission rate limit exceeded")
	case errors.Is(err, randomness.ErrInvalidBatch):
		httputil.BadRequest(w, err.Error())
	default:
		classified := randomness.Classify(err)
		httputil.WriteJSON(w, http.StatusBadGateway, classified)
	}
}

// writeReplay answers a repeated request id with the outcome already recorded.
func (s *Service) writeReplay(w http.ResponseWriter, entry storage.GenerationEntry) {
	switch entry.Status {
	case storage.StatusSubmitted, storage.StatusConfirmed:
		httputil.WriteJSON(w, http.StatusOK, GenerateResponse{
			ID:     entry.ID,
			TxHash: entry.TxHash,
			Mode:   randomness.Mode(entry.Mode),
		})
	case storage.StatusFailed:
		category := randomness.Category(entry.ErrorCategory)
		if category == "" {
			category = randomness.CategoryUnknown
		}
		httputil.WriteJSON(w, http.StatusBadGateway, &randomness.SubmissionError{
			Category: category,
			Message:  entry.ErrorMessage,
		})
	default:
		httputil.Conflict(w, "request "+entry.ID+" is still pending")
	}
}

func (s *Service) failEntry(ctx context.Context, id string, err error) {
	classified := randomness.Classify(err)
	entry, getErr := s.history.GetEntry(ctx, id)
	if getErr == nil && entry.Status.Final() {
		return
	}
	if _, updErr := s.history.UpdateEntryStatus(ctx, id, storage.StatusUpdate{
		Status:        storage.StatusFailed,
		ErrorCategory: string(classified.Category),
		ErrorMessage:  classified.Message,
	}); updErr != nil {
		s.logger.Error(ctx, "failed to mark history entry failed", updErr, map[string]interface{}{"entry_id": id})
	}
}

// markSubmitted records the hash unless the status callback already moved the entry on.
func (s *Service) markSubmitted(ctx context.Context, id, txHash string) {
	entry, err := s.history.GetEntry(ctx, id)
	if err != nil || entry.Status != storage.StatusPending {
		return
	}
	if _, err := s.history.UpdateEntryStatus(ctx, id, storage.StatusUpdate{
		Status: storage.StatusSubmitted,
		TxHash: txHash,
	}); err != nil {
		s.logger.Error(ctx, "failed to mark history entry submitted", err, map[string]interface{}{"entry_id": id})
	}
}
