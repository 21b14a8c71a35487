package randomness

import (
	"fmt"
	"strings"
)

// Mode selects how randomness is produced for a request.
type Mode string

const (
	// ModeDevnet derives numbers on-chain from the seed alone, with no oracle involved.
	ModeDevnet Mode = "devnet"
	// ModeStandard requests VRF randomness with the standard callback fee limit.
	ModeStandard Mode = "production-standard"
	// ModeSafe requests VRF randomness with the lower callback fee limit.
	ModeSafe Mode = "production-safe"
	// ModeAuto picks devnet or standard from the connected network.
	ModeAuto Mode = "auto"
)

// ParseMode accepts the canonical mode names and their short aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "devnet", "dev":
		return ModeDevnet, nil
	case "production-standard", "standard", "production":
		return ModeStandard, nil
	case "production-safe", "safe":
		return ModeSafe, nil
	case "auto", "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// IsProduction reports whether m goes through the VRF provider.
func (m Mode) IsProduction() bool {
	return m == ModeStandard || m == ModeSafe
}

func (m Mode) String() string { return string(m) }

// ResolveMode turns ModeAuto into a concrete mode for the named network.
// Explicit modes are returned unchanged.
func ResolveMode(requested Mode, networkName string) Mode {
	if requested != ModeAuto && requested != "" {
		return requested
	}
	if IsDevnetNetwork(networkName) {
		return ModeDevnet
	}
	return ModeStandard
}

// IsDevnetNetwork reports whether networkName names a local development chain.
func IsDevnetNetwork(networkName string) bool {
	n := strings.ToLower(networkName)
	return strings.Contains(n, "devnet") || n == "local" || n == "localhost"
}
