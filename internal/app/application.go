// Package app wires configuration into the running randomness service: stores,
// cache, chain client, signing wallet, transaction submitter and HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/R3E-Network/starknet_randomness/internal/cache"
	"github.com/R3E-Network/starknet_randomness/internal/chain"
	"github.com/R3E-Network/starknet_randomness/internal/config"
	"github.com/R3E-Network/starknet_randomness/internal/httputil"
	"github.com/R3E-Network/starknet_randomness/internal/logging"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/internal/storage"
	"github.com/R3E-Network/starknet_randomness/internal/storage/memory"
	"github.com/R3E-Network/starknet_randomness/internal/storage/postgres"
	"github.com/R3E-Network/starknet_randomness/internal/wallet"
	randomnesssvc "github.com/R3E-Network/starknet_randomness/services/randomness"
	"github.com/R3E-Network/starknet_randomness/services/txsubmitter"
)

// Store is the persistence the application needs.
type Store interface {
	storage.HistoryStore
	storage.TxStore
}

// Application ties the components together and manages their lifecycle.
type Application struct {
	cfg *config.Config
	log *logging.Logger

	Store     Store
	Cache     cache.NumbersCache
	Chain     *chain.Client
	Contract  *chain.RandomnessContract
	Wallet    wallet.Wallet
	Submitter *txsubmitter.Service
	Service   *randomnesssvc.Service

	closers []func() error
}

// New builds the application from cfg. Nothing is started.
func New(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.New(randomnesssvc.ServiceID, cfg.Log)
	}
	a := &Application{cfg: cfg, log: log}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		a.close()
		return nil, err
	}

	if cfg.Network.RPCURL != "" {
		client, err := chain.NewClient(chain.Config{RPCURL: cfg.Network.RPCURL, Timeout: cfg.Network.Timeout})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("chain client: %w", err)
		}
		a.Chain = client
		a.Contract = chain.NewRandomnessContract(client, cfg.Contracts.Consumer)
	}

	w, err := NewWallet(ctx, cfg, a.Chain)
	if err != nil {
		a.close()
		return nil, err
	}
	a.Wallet = w

	if err := a.buildServices(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// NewWallet returns the remote signer when one is configured, else the local account.
func NewWallet(ctx context.Context, cfg *config.Config, client *chain.Client) (wallet.Wallet, error) {
	if !cfg.LocalSigning() {
		remote, err := wallet.NewRemoteSubmitter(wallet.RemoteConfig{
			URL:       cfg.Signer.URL,
			Secret:    cfg.Signer.Secret,
			ServiceID: cfg.Signer.ServiceID,
			Client:    httputil.ServiceClientConfig{Timeout: cfg.Signer.Timeout},
		})
		if err != nil {
			return nil, fmt.Errorf("remote signer: %w", err)
		}
		return remote, nil
	}

	if client == nil {
		return nil, errors.New("local signing requires network.rpc_url")
	}
	var networkName string
	if randomness.IsDevnetNetwork(cfg.Network.Name) {
		networkName = cfg.Network.Name
	}
	account, err := wallet.NewAccountSubmitter(ctx, wallet.AccountConfig{
		RPCURL:      cfg.Network.RPCURL,
		Address:     cfg.Account.Address,
		PublicKey:   cfg.Account.PublicKey,
		PrivateKey:  cfg.Account.PrivateKey,
		NetworkName: networkName,
	}, client)
	if err != nil {
		return nil, fmt.Errorf("signing account: %w", err)
	}
	return account, nil
}

func (a *Application) openStore(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case "postgres":
		store, err := postgres.Open(ctx, a.cfg.Storage.DSN)
		if err != nil {
			return err
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	default:
		a.Store = memory.New()
	}
	return nil
}

func (a *Application) openCache(ctx context.Context) error {
	if a.cfg.Cache.RedisAddr == "" {
		a.Cache = cache.NopCache{}
		return nil
	}
	c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     a.cfg.Cache.RedisAddr,
		Password: a.cfg.Cache.Password,
		DB:       a.cfg.Cache.DB,
		TTL:      a.cfg.Cache.TTL,
	})
	if err != nil {
		return err
	}
	a.Cache = c
	a.closers = append(a.closers, c.Close)
	return nil
}

func (a *Application) buildServices() error {
	var svc *randomnesssvc.Service

	subCfg := txsubmitter.Config{
		Submitter: a.Wallet,
		Store:     a.Store,
		Logger:    a.log,
		RateLimit: txsubmitter.RateLimitConfig{
			GlobalTPS:  a.cfg.Submitter.RatePerSecond,
			Burst:      a.cfg.Submitter.Burst,
			PerKindTPS: txsubmitter.DefaultRateLimitConfig().PerKindTPS,
		},
		ConfirmSchedule: a.cfg.Submitter.ConfirmSchedule,
		OnStatusChange: func(ctx context.Context, rec storage.TxRecord) {
			if svc != nil {
				svc.HandleTxStatus(ctx, rec)
			}
		},
	}
	if a.Chain != nil {
		subCfg.Chain = a.Chain
	}
	submitter, err := txsubmitter.New(subCfg)
	if err != nil {
		return err
	}
	a.Submitter = submitter

	svcCfg := randomnesssvc.Config{
		Wallet:        a.Wallet,
		Submitter:     submitter,
		History:       a.Store,
		Cache:         a.Cache,
		Logger:        a.log,
		Params:        a.cfg.RandomnessParams(),
		Mode:          a.cfg.Mode(),
		TargetNetwork: a.cfg.Network.Name,
		Stats:         func() any { return submitter.Stats() },
		AdminSecret:   a.cfg.HTTP.AdminSecret,
		RateLimit:     a.cfg.HTTP.RateLimit,
		Burst:         a.cfg.HTTP.Burst,
		CORSOrigins:   a.cfg.HTTP.CORSOrigins,
	}
	if a.Contract != nil {
		svcCfg.Numbers = a.Contract
	}
	if a.Chain != nil {
		svcCfg.Blocks = a.Chain
	}
	svc, err = randomnesssvc.New(svcCfg)
	if err != nil {
		return err
	}
	a.Service = svc
	return nil
}

// Handler returns the HTTP API.
func (a *Application) Handler() http.Handler {
	return a.Service.Router()
}

// Start begins confirmation tracking.
func (a *Application) Start(ctx context.Context) error {
	return a.Submitter.Start(ctx)
}

// Stop halts background work and releases the store and cache.
func (a *Application) Stop() error {
	a.Submitter.Stop()
	return a.close()
}

func (a *Application) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
