package chain

import (
	"fmt"

	"github.com/R3E-Network/starknet_randomness/internal/felt"
)

// ParseUint64 parses a felt that must fit in 64 bits.
func ParseUint64(value string) (uint64, error) {
	v, err := felt.ParseHex(value)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("value %s overflows u64", value)
	}
	return v.Uint64(), nil
}

// ParseU64Array decodes a serialized Cairo Array<u64>: a length felt followed
// by that many items.
func ParseU64Array(felts []string) ([]uint64, error) {
	if len(felts) == 0 {
		return nil, fmt.Errorf("empty array result")
	}
	n, err := ParseUint64(felts[0])
	if err != nil {
		return nil, fmt.Errorf("array length: %w", err)
	}
	if uint64(len(felts)-1) != n {
		return nil, fmt.Errorf("array length %d does not match %d items", n, len(felts)-1)
	}

	out := make([]uint64, 0, n)
	for i, item := range felts[1:] {
		v, err := ParseUint64(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
