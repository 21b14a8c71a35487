// Package felt encodes integers and addresses as Starknet field elements.
package felt

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidSeed    = errors.New("invalid seed")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidFelt    = errors.New("invalid field element")
)

// Prime is the Stark field modulus, 2^251 + 17*2^192 + 1.
var Prime = uint256.MustFromHex("0x800000000000011000000000000000000000000000000000000000000000001")

// AccountAddressLength is the length of a fully padded account address including the 0x prefix.
const AccountAddressLength = 66

// ParseSeed converts user supplied seed text into an integer.
// Decimal and 0x-prefixed hex are accepted; the value must be a non-negative field element.
func ParseSeed(text string) (*big.Int, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSeed)
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidSeed, text)
	}

	var (
		v  *big.Int
		ok bool
	)
	if has0xPrefix(s) {
		v, ok = parseHexDigits(s[2:])
	} else {
		v, ok = new(big.Int).SetString(strings.TrimPrefix(s, "+"), 10)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidSeed, text)
	}
	if !inField(v) {
		return nil, fmt.Errorf("%w: %q exceeds the field modulus", ErrInvalidSeed, text)
	}
	return v, nil
}

// ToHex renders v as minimal lowercase 0x-prefixed hex. Zero is "0x0".
func ToHex(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// FromUint64 renders u as minimal lowercase 0x-prefixed hex.
func FromUint64(u uint64) string {
	return hexutil.EncodeUint64(u)
}

// ParseHex decodes 0x-prefixed hex into a field element. Leading zeros are allowed,
// as node responses frequently pad values.
func ParseHex(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !has0xPrefix(s) {
		return nil, fmt.Errorf("%w: %q missing 0x prefix", ErrInvalidFelt, s)
	}
	v, ok := parseHexDigits(s[2:])
	if !ok || !inField(v) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFelt, s)
	}
	return v, nil
}

// ValidateAddress checks that addr is a 0x-prefixed field element of at most 64 hex digits.
func ValidateAddress(addr string) error {
	if !has0xPrefix(addr) {
		return fmt.Errorf("%w: %q missing 0x prefix", ErrInvalidAddress, addr)
	}
	digits := addr[2:]
	if len(digits) == 0 || len(digits) > 64 {
		return fmt.Errorf("%w: %q has %d hex digits", ErrInvalidAddress, addr, len(digits))
	}
	v, ok := parseHexDigits(digits)
	if !ok {
		return fmt.Errorf("%w: %q is not hex", ErrInvalidAddress, addr)
	}
	if !inField(v) {
		return fmt.Errorf("%w: %q exceeds the field modulus", ErrInvalidAddress, addr)
	}
	return nil
}

// IsAccountAddress reports whether addr has the padded form wallets hand out for accounts.
func IsAccountAddress(addr string) bool {
	return len(addr) == AccountAddressLength && strings.HasPrefix(addr, "0x") && ValidateAddress(addr) == nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func parseHexDigits(digits string) (*big.Int, bool) {
	if digits == "" {
		return nil, false
	}
	for _, c := range digits {
		if !isHexDigit(c) {
			return nil, false
		}
	}
	return new(big.Int).SetString(digits, 16)
}

func isHexDigit(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func inField(v *big.Int) bool {
	if v.Sign() < 0 {
		return false
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return false
	}
	return u.Lt(Prime)
}
