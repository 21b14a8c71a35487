// Package randomnesssvc exposes the randomness request flow over HTTP: batch
// preview, submission through the transaction submitter, generation history
// and reading generated numbers back from the consumer contract.
package randomnesssvc

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/starknet_randomness/internal/cache"
	"github.com/R3E-Network/starknet_randomness/internal/felt"
	"github.com/R3E-Network/starknet_randomness/internal/logging"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/internal/storage"
	"github.com/R3E-Network/starknet_randomness/internal/wallet"
	"github.com/R3E-Network/starknet_randomness/services/txsubmitter"
)

const (
	ServiceID   = "randomness"
	ServiceName = "Starknet Randomness Service"
	Version     = "1.0.0"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Submitter sends call batches through the audited submission path.
type Submitter interface {
	Submit(ctx context.Context, req txsubmitter.SubmitRequest) (*txsubmitter.TxResponse, error)
}

// NumbersReader reads generation numbers from the consumer contract.
type NumbersReader interface {
	GetGenerationNumbers(ctx context.Context, id uint64) ([]uint64, error)
}

// BlockReader reports the node's latest block.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config holds the collaborators and settings of a Service.
type Config struct {
	Wallet    wallet.Provider
	Submitter Submitter
	History   storage.HistoryStore
	Numbers   NumbersReader
	Blocks    BlockReader
	Cache     cache.NumbersCache
	Logger    *logging.Logger

	Params randomness.Params
	// Mode is used when a request does not name one.
	Mode          randomness.Mode
	TargetNetwork string

	// Stats reports submitter counters on /status.
	Stats func() any

	AdminSecret string
	RateLimit   int
	Burst       int
	CORSOrigins []string
}

// Service serves the randomness HTTP API.
type Service struct {
	wallet    wallet.Provider
	submitter Submitter
	history   storage.HistoryStore
	numbers   NumbersReader
	blocks    BlockReader
	cache     cache.NumbersCache
	logger    *logging.Logger

	params        randomness.Params
	mode          randomness.Mode
	targetNetwork string
	stats         func() any

	submitting atomic.Bool
	router     *mux.Router
}

// New creates the service and registers its routes.
func New(cfg Config) (*Service, error) {
	if cfg.Wallet == nil {
		return nil, errors.New("randomness service: wallet provider is required")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("randomness service: submitter is required")
	}
	if cfg.History == nil {
		return nil, errors.New("randomness service: history store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NopCache{}
	}
	if cfg.Mode == "" {
		cfg.Mode = randomness.ModeAuto
	}

	s := &Service{
		wallet:        cfg.Wallet,
		submitter:     cfg.Submitter,
		history:       cfg.History,
		numbers:       cfg.Numbers,
		blocks:        cfg.Blocks,
		cache:         cfg.Cache,
		logger:        cfg.Logger.WithField("service", ServiceID),
		params:        cfg.Params,
		mode:          cfg.Mode,
		targetNetwork: cfg.TargetNetwork,
		stats:         cfg.Stats,
		router:        mux.NewRouter(),
	}
	s.registerRoutes(cfg)
	return s, nil
}

// Router returns the HTTP handler.
func (s *Service) Router() http.Handler {
	return s.router
}

// HandleTxStatus mirrors a submitter record onto the generation entry it was
// submitted for. Records of other kinds are ignored.
func (s *Service) HandleTxStatus(ctx context.Context, rec storage.TxRecord) {
	if rec.Kind != txsubmitter.KindRandomness {
		return
	}
	entry, err := s.history.GetEntry(ctx, rec.RequestID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error(ctx, "failed to load history entry", err, map[string]interface{}{"entry_id": rec.RequestID})
		}
		return
	}
	if entry.Status.Final() || entry.Status == rec.Status {
		return
	}

	if _, err := s.history.UpdateEntryStatus(ctx, entry.ID, storage.StatusUpdate{
		Status:        rec.Status,
		TxHash:        rec.TxHash,
		ErrorCategory: rec.ErrorCategory,
		ErrorMessage:  rec.ErrorMessage,
		ConfirmedAt:   rec.ConfirmedAt,
	}); err != nil {
		s.logger.Error(ctx, "failed to update history entry", err, map[string]interface{}{"entry_id": entry.ID})
	}
}

// environment reads the wallet and returns its status and precondition view.
func (s *Service) environment(ctx context.Context) (wallet.Status, randomness.Environment, error) {
	status, err := s.wallet.Status(ctx)
	if err != nil {
		return wallet.Status{}, randomness.Environment{}, err
	}
	return status, status.Environment(s.targetNetwork), nil
}

// resolveMode picks the mode for a request: the requested one, else the
// configured one, with auto resolved against the connected network.
func (s *Service) resolveMode(requested, networkName string) (randomness.Mode, error) {
	mode := s.mode
	if requested != "" {
		parsed, err := randomness.ParseMode(requested)
		if err != nil {
			return "", err
		}
		mode = parsed
	}
	if networkName == "" {
		networkName = s.targetNetwork
	}
	return randomness.ResolveMode(mode, networkName), nil
}

// validateRequest rejects a malformed seed or mode before the wallet is read.
func (s *Service) validateRequest(req GenerateRequest) error {
	if _, err := felt.ParseSeed(req.Seed); err != nil {
		return err
	}
	if req.Mode != "" {
		if _, err := randomness.ParseMode(req.Mode); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) buildBatch(req GenerateRequest, networkName string) (randomness.Mode, randomness.CallBatch, error) {
	mode, err := s.resolveMode(req.Mode, networkName)
	if err != nil {
		return "", nil, err
	}
	params := s.params
	if req.FeeLimit > 0 {
		params.FeeLimit = req.FeeLimit
	}
	if req.PublishDelay > 0 {
		params.PublishDelay = req.PublishDelay
	}
	batch, err := randomness.BuildBatch(req.Seed, mode, params)
	if err != nil {
		return mode, nil, err
	}
	return mode, batch, nil
}
