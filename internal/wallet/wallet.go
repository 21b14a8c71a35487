// Package wallet connects the randomness flow to a signing account: either a
// local starknet.go account or a remote signer service.
package wallet

import (
	"context"

	"github.com/R3E-Network/starknet_randomness/internal/randomness"
)

// Status describes the signing account as seen right now.
type Status struct {
	Connected      bool   `json:"connected"`
	AccountAddress string `json:"account_address,omitempty"`
	ChainID        string `json:"chain_id,omitempty"`
	NetworkName    string `json:"network_name,omitempty"`
}

// Provider reports the wallet status.
type Provider interface {
	Status(ctx context.Context) (Status, error)
}

// Wallet can both report its status and submit call batches.
type Wallet interface {
	Provider
	randomness.Submitter
}

// Environment turns a status into the precondition view used by the request flow.
func (s Status) Environment(targetNetwork string) randomness.Environment {
	return randomness.Environment{
		Connected:      s.Connected,
		AccountAddress: s.AccountAddress,
		NetworkName:    s.NetworkName,
		TargetNetwork:  targetNetwork,
	}
}

// StaticProvider always reports the same status.
type StaticProvider struct {
	status Status
}

// NewStaticProvider returns a provider that reports status.
func NewStaticProvider(status Status) *StaticProvider {
	return &StaticProvider{status: status}
}

func (p *StaticProvider) Status(context.Context) (Status, error) {
	return p.status, nil
}
