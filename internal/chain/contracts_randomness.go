package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/R3E-Network/starknet_randomness/internal/randomness"
)

// RandomnessContract reads from the randomness consumer contract.
type RandomnessContract struct {
	client  *Client
	address string
}

// NewRandomnessContract creates a wrapper for the consumer at address.
func NewRandomnessContract(client *Client, address string) *RandomnessContract {
	return &RandomnessContract{client: client, address: address}
}

// Address returns the consumer contract address.
func (r *RandomnessContract) Address() string { return r.address }

// GetGenerationNumbers returns the numbers recorded for a generation id.
func (r *RandomnessContract) GetGenerationNumbers(ctx context.Context, id uint64) ([]uint64, error) {
	call, err := randomness.GetGenerationNumbersCall(r.address, new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}

	result, err := r.client.CallContract(ctx, call.ContractAddress(), call.Entrypoint(), call.Calldata())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", call.Entrypoint(), err)
	}
	return ParseU64Array(result)
}
