// Package randomness builds and classifies the contract calls that request on-chain
// randomness from the Randomness consumer contract and the Cartridge VRF provider.
package randomness

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/R3E-Network/starknet_randomness/internal/felt"
)

// Entrypoints of the consumer contract and the VRF provider.
const (
	EntrypointDevnetGenerate        = "devnet_generate"
	EntrypointRequestRandomnessProd = "request_randomness_prod"
	EntrypointGetGenerationNumbers  = "get_generation_numbers"
	EntrypointSetVRFCoordinator     = "set_vrf_coordinator"
	EntrypointRequestRandom         = "request_random"
)

const (
	// StandardFeeLimit is the callback fee limit used by ModeStandard.
	StandardFeeLimit uint64 = 100000
	// SafeFeeLimit is the callback fee limit used by ModeSafe.
	SafeFeeLimit uint64 = 50000
	// DefaultPublishDelay publishes the randomness in the same block.
	DefaultPublishDelay uint64 = 0

	// DefaultSeed is the seed offered when the operator has not typed one.
	DefaultSeed = "12345"

	// CartridgeVRFProvider is the Cartridge VRF provider on Sepolia.
	CartridgeVRFProvider = "0x051fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f"

	// saltSourceTag is the variant index of Source::Salt in the provider ABI.
	saltSourceTag = "0x1"
)

var (
	ErrUnknownMode          = errors.New("unknown randomness mode")
	ErrMissingVRFProvider   = errors.New("vrf provider address required in production mode")
	ErrInvalidBatch         = errors.New("invalid call batch")
	ErrSubmissionInProgress = errors.New("a randomness request is already being submitted")
)

// CallDescriptor is a single contract invocation. It cannot be changed after NewCall.
type CallDescriptor struct {
	contractAddress string
	entrypoint      string
	calldata        []string
}

// NewCall copies calldata into a new descriptor.
func NewCall(contractAddress, entrypoint string, calldata ...string) CallDescriptor {
	data := make([]string, len(calldata))
	copy(data, calldata)
	return CallDescriptor{
		contractAddress: contractAddress,
		entrypoint:      entrypoint,
		calldata:        data,
	}
}

// ContractAddress returns the invoked contract.
func (c CallDescriptor) ContractAddress() string { return c.contractAddress }

// Entrypoint returns the invoked function name.
func (c CallDescriptor) Entrypoint() string { return c.entrypoint }

// Calldata returns a copy of the encoded arguments.
func (c CallDescriptor) Calldata() []string {
	out := make([]string, len(c.calldata))
	copy(out, c.calldata)
	return out
}

type callJSON struct {
	ContractAddress string   `json:"contract_address"`
	Entrypoint      string   `json:"entrypoint"`
	Calldata        []string `json:"calldata"`
}

// MarshalJSON encodes the call in the shape wallets accept.
func (c CallDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(callJSON{
		ContractAddress: c.contractAddress,
		Entrypoint:      c.entrypoint,
		Calldata:        c.Calldata(),
	})
}

// UnmarshalJSON decodes a call produced by MarshalJSON.
func (c *CallDescriptor) UnmarshalJSON(data []byte) error {
	var raw callJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NewCall(raw.ContractAddress, raw.Entrypoint, raw.Calldata...)
	return nil
}

// CallBatch is an ordered group of calls executed in one atomic transaction.
type CallBatch []CallDescriptor

// Validate checks the batch size and, for two-call batches, that the VRF request
// precedes the consumer call it feeds.
func (b CallBatch) Validate() error {
	switch len(b) {
	case 1:
		return nil
	case 2:
		req, consume := b[0], b[1]
		if req.Entrypoint() != EntrypointRequestRandom {
			return fmt.Errorf("%w: first call must be %s, got %s", ErrInvalidBatch, EntrypointRequestRandom, req.Entrypoint())
		}
		if consume.Entrypoint() != EntrypointRequestRandomnessProd {
			return fmt.Errorf("%w: second call must be %s, got %s", ErrInvalidBatch, EntrypointRequestRandomnessProd, consume.Entrypoint())
		}
		if len(req.calldata) == 0 || req.calldata[0] != consume.ContractAddress() {
			return fmt.Errorf("%w: vrf caller does not match consumer %s", ErrInvalidBatch, consume.ContractAddress())
		}
		return nil
	default:
		return fmt.Errorf("%w: %d calls", ErrInvalidBatch, len(b))
	}
}

// Entrypoints lists the entrypoint names in order, for logs and audit records.
func (b CallBatch) Entrypoints() []string {
	names := make([]string, len(b))
	for i, c := range b {
		names[i] = c.Entrypoint()
	}
	return names
}

// Params carries the addresses and limits a batch is built against.
type Params struct {
	ConsumerAddress    string
	VRFProviderAddress string
	// FeeLimit and PublishDelay override the defaults in ModeSafe only.
	FeeLimit     uint64
	PublishDelay uint64
	// TaggedSource prefixes the seed with the Source::Salt variant tag in request_random.
	TaggedSource bool
}

// DefaultParams returns the fee limit and publish delay mode uses when nothing is overridden.
// Devnet carries no limits.
func DefaultParams(mode Mode) Params {
	switch mode {
	case ModeStandard:
		return Params{FeeLimit: StandardFeeLimit, PublishDelay: DefaultPublishDelay}
	case ModeSafe:
		return Params{FeeLimit: SafeFeeLimit, PublishDelay: DefaultPublishDelay}
	default:
		return Params{}
	}
}

// limits returns the callback fee limit and publish delay for mode.
func (p Params) limits(mode Mode) (uint64, uint64) {
	if mode != ModeSafe {
		return StandardFeeLimit, DefaultPublishDelay
	}
	feeLimit, delay := SafeFeeLimit, DefaultPublishDelay
	if p.FeeLimit > 0 {
		feeLimit = p.FeeLimit
	}
	if p.PublishDelay > 0 {
		delay = p.PublishDelay
	}
	return feeLimit, delay
}

// BuildBatch translates a seed and mode into the calls that request randomness.
// Nothing is submitted; an invalid seed or consumer address is rejected here.
func BuildBatch(seed string, mode Mode, p Params) (CallBatch, error) {
	value, err := felt.ParseSeed(seed)
	if err != nil {
		return nil, err
	}
	if err := felt.ValidateAddress(p.ConsumerAddress); err != nil {
		return nil, fmt.Errorf("consumer contract: %w", err)
	}
	seedHex := felt.ToHex(value)

	switch mode {
	case ModeDevnet:
		return CallBatch{
			NewCall(p.ConsumerAddress, EntrypointDevnetGenerate, seedHex),
		}, nil

	case ModeStandard, ModeSafe:
		if strings.TrimSpace(p.VRFProviderAddress) == "" {
			return nil, ErrMissingVRFProvider
		}
		feeLimit, delay := p.limits(mode)

		request := []string{p.ConsumerAddress}
		if p.TaggedSource {
			request = append(request, saltSourceTag)
		}
		request = append(request, seedHex)

		return CallBatch{
			NewCall(p.VRFProviderAddress, EntrypointRequestRandom, request...),
			NewCall(p.ConsumerAddress, EntrypointRequestRandomnessProd,
				seedHex, felt.FromUint64(feeLimit), felt.FromUint64(delay)),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// SetVRFCoordinatorCall builds the admin call that repoints the consumer at a coordinator.
func SetVRFCoordinatorCall(consumer, coordinator string) (CallDescriptor, error) {
	if err := felt.ValidateAddress(consumer); err != nil {
		return CallDescriptor{}, fmt.Errorf("consumer contract: %w", err)
	}
	if err := felt.ValidateAddress(coordinator); err != nil {
		return CallDescriptor{}, fmt.Errorf("vrf coordinator: %w", err)
	}
	return NewCall(consumer, EntrypointSetVRFCoordinator, coordinator), nil
}

// GetGenerationNumbersCall builds the read-only call returning a generation's numbers.
func GetGenerationNumbersCall(consumer string, generationID *big.Int) (CallDescriptor, error) {
	if err := felt.ValidateAddress(consumer); err != nil {
		return CallDescriptor{}, fmt.Errorf("consumer contract: %w", err)
	}
	if generationID == nil || generationID.Sign() < 0 {
		return CallDescriptor{}, fmt.Errorf("generation id must be non-negative")
	}
	return NewCall(consumer, EntrypointGetGenerationNumbers, felt.ToHex(generationID)), nil
}
