package felt

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"decimal", "12345", 12345},
		{"padded", "  42 ", 42},
		{"zero", "0", 0},
		{"plus sign", "+7", 7},
		{"hex", "0x3039", 12345},
		{"upper hex", "0X3039", 12345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeed(tt.input)
			require.NoError(t, err)
			assert.Equal(t, big.NewInt(tt.want), got)
		})
	}
}

func TestParseSeed_Rejects(t *testing.T) {
	inputs := []string{"", "   ", "-1", "1.5", "1e3", "abc", "0x", "0xzz", "12 34"}
	for _, in := range inputs {
		_, err := ParseSeed(in)
		assert.ErrorIs(t, err, ErrInvalidSeed, "input %q", in)
	}
}

func TestParseSeed_FieldBound(t *testing.T) {
	p := Prime.ToBig()

	_, err := ParseSeed(p.String())
	assert.ErrorIs(t, err, ErrInvalidSeed)

	below := new(big.Int).Sub(p, big.NewInt(1))
	got, err := ParseSeed(below.String())
	require.NoError(t, err)
	assert.Equal(t, below, got)
}

func TestToHex(t *testing.T) {
	assert.Equal(t, "0x3039", ToHex(big.NewInt(12345)))
	assert.Equal(t, "0x0", ToHex(big.NewInt(0)))
	assert.Equal(t, "0x0", ToHex(nil))
	assert.Equal(t, "0x186a0", FromUint64(100000))
	assert.Equal(t, "0x0", FromUint64(0))
}

func TestParseHex(t *testing.T) {
	v, err := ParseHex("0x0000000000000005")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), v)

	_, err = ParseHex("5")
	assert.ErrorIs(t, err, ErrInvalidFelt)
}

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"0xABC",
		"0x1",
		"0x051fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f",
	}
	for _, addr := range valid {
		assert.NoError(t, ValidateAddress(addr), addr)
	}

	invalid := []string{
		"",
		"ABC",
		"0x",
		"0xVRF",
		"0x" + strings.Repeat("1", 65),
		"0x" + strings.Repeat("f", 64),
	}
	for _, addr := range invalid {
		assert.ErrorIs(t, ValidateAddress(addr), ErrInvalidAddress, addr)
	}
}

func TestIsAccountAddress(t *testing.T) {
	assert.True(t, IsAccountAddress("0x051fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f"))
	assert.False(t, IsAccountAddress("0x51fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f"))
	assert.False(t, IsAccountAddress("0xABC"))
}
