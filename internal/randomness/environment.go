package randomness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/starknet_randomness/internal/felt"
)

var (
	ErrNotConnected   = errors.New("wallet not connected")
	ErrWrongNetwork   = errors.New("wallet connected to the wrong network")
	ErrInvalidAccount = errors.New("connected account address is malformed")
)

// Environment is the account and network context a submission runs against.
// It is read-only from the orchestrator's point of view.
type Environment struct {
	Connected      bool   `json:"connected"`
	AccountAddress string `json:"account_address"`
	NetworkName    string `json:"network_name"`
	TargetNetwork  string `json:"target_network"`
}

// WriteDisabled reports whether submissions must be blocked.
func (e Environment) WriteDisabled() bool {
	return e.Check() != nil
}

// Check returns the first precondition the environment fails.
func (e Environment) Check() error {
	if !e.Connected {
		return ErrNotConnected
	}
	if e.TargetNetwork != "" && !strings.EqualFold(e.NetworkName, e.TargetNetwork) {
		return fmt.Errorf("%w: connected to %q, expected %q", ErrWrongNetwork, e.NetworkName, e.TargetNetwork)
	}
	if e.AccountAddress == "" {
		return fmt.Errorf("%w: no address", ErrInvalidAccount)
	}
	if !felt.IsAccountAddress(e.AccountAddress) {
		return fmt.Errorf("%w: %s", ErrInvalidAccount, e.AccountAddress)
	}
	return nil
}
