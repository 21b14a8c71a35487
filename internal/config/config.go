// Package config loads the randomness service configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/starknet_randomness/internal/felt"
	"github.com/R3E-Network/starknet_randomness/internal/logging"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
)

// Config is the full service configuration.
type Config struct {
	Network    NetworkConfig    `yaml:"network"`
	Account    AccountConfig    `yaml:"account"`
	Contracts  ContractsConfig  `yaml:"contracts"`
	Randomness RandomnessConfig `yaml:"randomness"`
	Signer     SignerConfig     `yaml:"signer"`
	Submitter  SubmitterConfig  `yaml:"submitter"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        logging.Config   `yaml:"log"`
}

// NetworkConfig describes the Starknet node and the network submissions target.
type NetworkConfig struct {
	// Name is the target network (devnet, sepolia, mainnet). Wallets on another network are refused.
	Name    string        `yaml:"name" env:"STARKNET_NETWORK"`
	RPCURL  string        `yaml:"rpc_url" env:"STARKNET_RPC_URL"`
	Timeout time.Duration `yaml:"timeout" env:"STARKNET_RPC_TIMEOUT"`
}

// AccountConfig identifies the account that signs submissions locally.
type AccountConfig struct {
	Address    string `yaml:"address" env:"ACCOUNT_ADDRESS"`
	PublicKey  string `yaml:"public_key" env:"ACCOUNT_PUBLIC_KEY"`
	PrivateKey string `yaml:"-" env:"ACCOUNT_PRIVATE_KEY"`
}

// ContractsConfig holds the consumer contract and VRF provider addresses.
type ContractsConfig struct {
	Consumer    string `yaml:"consumer" env:"RANDOMNESS_CONTRACT_ADDRESS"`
	VRFProvider string `yaml:"vrf_provider" env:"VRF_PROVIDER_ADDRESS"`
}

// RandomnessConfig tunes how batches are built.
type RandomnessConfig struct {
	Mode         string `yaml:"mode" env:"RANDOMNESS_MODE"`
	FeeLimit     uint64 `yaml:"fee_limit" env:"RANDOMNESS_FEE_LIMIT"`
	PublishDelay uint64 `yaml:"publish_delay" env:"RANDOMNESS_PUBLISH_DELAY"`
	TaggedSource bool   `yaml:"tagged_source" env:"RANDOMNESS_TAGGED_SOURCE"`
	DefaultSeed  string `yaml:"default_seed" env:"RANDOMNESS_DEFAULT_SEED"`
}

// SignerConfig points at a remote signer. When URL is empty the local account signs.
type SignerConfig struct {
	URL       string        `yaml:"url" env:"SIGNER_URL"`
	Secret    string        `yaml:"-" env:"SIGNER_SECRET"`
	ServiceID string        `yaml:"service_id" env:"SIGNER_SERVICE_ID"`
	Timeout   time.Duration `yaml:"timeout" env:"SIGNER_TIMEOUT"`
}

// SubmitterConfig throttles submissions and schedules confirmation sweeps.
type SubmitterConfig struct {
	RatePerSecond   float64 `yaml:"rate_per_second" env:"SUBMIT_RATE"`
	Burst           int     `yaml:"burst" env:"SUBMIT_BURST"`
	ConfirmSchedule string  `yaml:"confirm_schedule" env:"CONFIRM_SCHEDULE"`
}

// StorageConfig selects the history backend.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER"` // memory or postgres
	DSN    string `yaml:"-" env:"DATABASE_URL"`
}

// CacheConfig configures the generation number cache. Empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	Password  string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"REDIS_DB"`
	TTL       time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR"`
	RateLimit       int           `yaml:"rate_limit" env:"HTTP_RATE_LIMIT"`
	Burst           int           `yaml:"burst" env:"HTTP_BURST"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	// AdminSecret signs service tokens for the admin routes. Empty disables them.
	AdminSecret string `yaml:"-" env:"ADMIN_SECRET"`
}

// Default returns a configuration that targets a local devnet.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			Name:    "devnet",
			RPCURL:  "http://127.0.0.1:5050/rpc",
			Timeout: 30 * time.Second,
		},
		Contracts: ContractsConfig{
			VRFProvider: randomness.CartridgeVRFProvider,
		},
		Randomness: RandomnessConfig{
			Mode:        string(randomness.ModeAuto),
			DefaultSeed: randomness.DefaultSeed,
		},
		Signer: SignerConfig{
			ServiceID: "randomness",
			Timeout:   30 * time.Second,
		},
		Submitter: SubmitterConfig{
			RatePerSecond:   2,
			Burst:           4,
			ConfirmSchedule: "@every 5s",
		},
		Storage: StorageConfig{Driver: "memory"},
		Cache:   CacheConfig{TTL: 10 * time.Minute},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RateLimit:       10,
			Burst:           20,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: logging.Config{Level: "info", Format: "json"},
	}
}

// Load reads defaults, then the YAML file at path (if any), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Network.RPCURL) == "" && c.Signer.URL == "" {
		errs = append(errs, errors.New("network.rpc_url or signer.url is required"))
	}
	if c.Contracts.Consumer == "" {
		errs = append(errs, errors.New("contracts.consumer is required"))
	} else if err := felt.ValidateAddress(c.Contracts.Consumer); err != nil {
		errs = append(errs, fmt.Errorf("contracts.consumer: %w", err))
	}

	mode, err := randomness.ParseMode(c.Randomness.Mode)
	if err != nil {
		errs = append(errs, fmt.Errorf("randomness.mode: %w", err))
	}
	if mode != randomness.ModeDevnet && c.Contracts.VRFProvider != "" {
		if err := felt.ValidateAddress(c.Contracts.VRFProvider); err != nil {
			errs = append(errs, fmt.Errorf("contracts.vrf_provider: %w", err))
		}
	}
	if mode.IsProduction() && c.Contracts.VRFProvider == "" {
		errs = append(errs, errors.New("contracts.vrf_provider is required in production mode"))
	}

	if c.Account.Address != "" {
		if err := felt.ValidateAddress(c.Account.Address); err != nil {
			errs = append(errs, fmt.Errorf("account.address: %w", err))
		}
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}

	if c.Submitter.RatePerSecond <= 0 {
		errs = append(errs, errors.New("submitter.rate_per_second must be positive"))
	}

	return errors.Join(errs...)
}

// Mode returns the configured randomness mode.
func (c *Config) Mode() randomness.Mode {
	mode, err := randomness.ParseMode(c.Randomness.Mode)
	if err != nil {
		return randomness.ModeAuto
	}
	return mode
}

// RandomnessParams returns the batch parameters derived from the configuration.
func (c *Config) RandomnessParams() randomness.Params {
	return randomness.Params{
		ConsumerAddress:    c.Contracts.Consumer,
		VRFProviderAddress: c.Contracts.VRFProvider,
		FeeLimit:           c.Randomness.FeeLimit,
		PublishDelay:       c.Randomness.PublishDelay,
		TaggedSource:       c.Randomness.TaggedSource,
	}
}

// RequestSeed returns seed, or the configured default seed when seed is empty.
func (c *Config) RequestSeed(seed string) string {
	if seed != "" {
		return seed
	}
	if c.Randomness.DefaultSeed != "" {
		return c.Randomness.DefaultSeed
	}
	return randomness.DefaultSeed
}

// LocalSigning reports whether submissions are signed with the configured account.
func (c *Config) LocalSigning() bool {
	return c.Signer.URL == ""
}
