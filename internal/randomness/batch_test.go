package randomness_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/starknet_randomness/internal/felt"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
)

const (
	consumer = "0xABC"
	provider = "0xVRF"
)

func params() randomness.Params {
	return randomness.Params{ConsumerAddress: consumer, VRFProviderAddress: provider}
}

func TestBuildBatch_Devnet(t *testing.T) {
	batch, err := randomness.BuildBatch("12345", randomness.ModeDevnet, params())
	require.NoError(t, err)
	require.Len(t, batch, 1)

	call := batch[0]
	assert.Equal(t, consumer, call.ContractAddress())
	assert.Equal(t, randomness.EntrypointDevnetGenerate, call.Entrypoint())
	assert.Equal(t, []string{"0x3039"}, call.Calldata())
	assert.NoError(t, batch.Validate())
}

func TestBuildBatch_DevnetNeedsNoProvider(t *testing.T) {
	batch, err := randomness.BuildBatch("1", randomness.ModeDevnet, randomness.Params{ConsumerAddress: consumer})
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestBuildBatch_Standard(t *testing.T) {
	batch, err := randomness.BuildBatch("12345", randomness.ModeStandard, params())
	require.NoError(t, err)
	require.Len(t, batch, 2)

	assert.Equal(t, provider, batch[0].ContractAddress())
	assert.Equal(t, randomness.EntrypointRequestRandom, batch[0].Entrypoint())
	assert.Equal(t, []string{consumer, "0x3039"}, batch[0].Calldata())

	assert.Equal(t, consumer, batch[1].ContractAddress())
	assert.Equal(t, randomness.EntrypointRequestRandomnessProd, batch[1].Entrypoint())
	assert.Equal(t, []string{"0x3039", "0x186a0", "0x0"}, batch[1].Calldata())

	assert.NoError(t, batch.Validate())
}

func TestBuildBatch_Safe(t *testing.T) {
	batch, err := randomness.BuildBatch("12345", randomness.ModeSafe, params())
	require.NoError(t, err)
	require.Len(t, batch, 2)

	assert.Equal(t, randomness.EntrypointRequestRandom, batch[0].Entrypoint())
	assert.Equal(t, []string{"0x3039", felt.FromUint64(randomness.SafeFeeLimit), "0x0"}, batch[1].Calldata())
}

func TestDefaultParams(t *testing.T) {
	assert.Equal(t, randomness.StandardFeeLimit, randomness.DefaultParams(randomness.ModeStandard).FeeLimit)
	assert.Equal(t, randomness.SafeFeeLimit, randomness.DefaultParams(randomness.ModeSafe).FeeLimit)
	assert.Equal(t, randomness.DefaultPublishDelay, randomness.DefaultParams(randomness.ModeSafe).PublishDelay)
	assert.Zero(t, randomness.DefaultParams(randomness.ModeDevnet).FeeLimit)
}

func TestFeeLimits(t *testing.T) {
	assert.Less(t, randomness.SafeFeeLimit, randomness.StandardFeeLimit)

	standard, err := randomness.BuildBatch("7", randomness.ModeStandard, params())
	require.NoError(t, err)
	safe, err := randomness.BuildBatch("7", randomness.ModeSafe, params())
	require.NoError(t, err)

	stdFee, err := felt.ParseHex(standard[1].Calldata()[1])
	require.NoError(t, err)
	safeFee, err := felt.ParseHex(safe[1].Calldata()[1])
	require.NoError(t, err)
	assert.Equal(t, -1, safeFee.Cmp(stdFee))

	// everything except the fee limit is identical
	assert.Equal(t, standard[0].Calldata(), safe[0].Calldata())
	assert.Equal(t, standard[1].Calldata()[0], safe[1].Calldata()[0])
	assert.Equal(t, standard[1].Calldata()[2], safe[1].Calldata()[2])
}

func TestBuildBatch_OverridesOnlyInSafeMode(t *testing.T) {
	p := params()
	p.FeeLimit = 7000
	p.PublishDelay = 3

	safe, err := randomness.BuildBatch("1", randomness.ModeSafe, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x1", "0x1b58", "0x3"}, safe[1].Calldata())

	standard, err := randomness.BuildBatch("1", randomness.ModeStandard, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x1", "0x186a0", "0x0"}, standard[1].Calldata())
}

func TestBuildBatch_TaggedSource(t *testing.T) {
	p := params()
	p.TaggedSource = true

	batch, err := randomness.BuildBatch("12345", randomness.ModeStandard, p)
	require.NoError(t, err)
	assert.Equal(t, []string{consumer, "0x1", "0x3039"}, batch[0].Calldata())
}

func TestBuildBatch_InvalidSeed(t *testing.T) {
	for _, seed := range []string{"", "abc", "-5", "1.25"} {
		for _, mode := range []randomness.Mode{randomness.ModeDevnet, randomness.ModeStandard, randomness.ModeSafe} {
			batch, err := randomness.BuildBatch(seed, mode, params())
			assert.ErrorIs(t, err, felt.ErrInvalidSeed, "seed %q mode %s", seed, mode)
			assert.Nil(t, batch)
		}
	}
}

func TestBuildBatch_InvalidConsumer(t *testing.T) {
	_, err := randomness.BuildBatch("1", randomness.ModeDevnet, randomness.Params{ConsumerAddress: "ABC"})
	assert.ErrorIs(t, err, felt.ErrInvalidAddress)
}

func TestBuildBatch_MissingProvider(t *testing.T) {
	_, err := randomness.BuildBatch("1", randomness.ModeStandard, randomness.Params{ConsumerAddress: consumer})
	assert.ErrorIs(t, err, randomness.ErrMissingVRFProvider)
}

func TestBuildBatch_UnresolvedMode(t *testing.T) {
	_, err := randomness.BuildBatch("1", randomness.ModeAuto, params())
	assert.ErrorIs(t, err, randomness.ErrUnknownMode)
}

func TestCallDescriptor_Immutable(t *testing.T) {
	data := []string{"0x1"}
	call := randomness.NewCall(consumer, "f", data...)
	data[0] = "0x2"

	got := call.Calldata()
	got[0] = "0x3"
	assert.Equal(t, []string{"0x1"}, call.Calldata())
}

func TestCallDescriptor_JSON(t *testing.T) {
	call := randomness.NewCall(consumer, randomness.EntrypointDevnetGenerate, "0x3039")
	data, err := json.Marshal(call)
	require.NoError(t, err)
	assert.JSONEq(t, `{"contract_address":"0xABC","entrypoint":"devnet_generate","calldata":["0x3039"]}`, string(data))

	var decoded randomness.CallDescriptor
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, call, decoded)
}

func TestCallBatch_Validate(t *testing.T) {
	reversed := randomness.CallBatch{
		randomness.NewCall(consumer, randomness.EntrypointRequestRandomnessProd, "0x1", "0x186a0", "0x0"),
		randomness.NewCall(provider, randomness.EntrypointRequestRandom, consumer, "0x1"),
	}
	assert.ErrorIs(t, reversed.Validate(), randomness.ErrInvalidBatch)

	mismatched := randomness.CallBatch{
		randomness.NewCall(provider, randomness.EntrypointRequestRandom, "0xDEF", "0x1"),
		randomness.NewCall(consumer, randomness.EntrypointRequestRandomnessProd, "0x1", "0x186a0", "0x0"),
	}
	assert.ErrorIs(t, mismatched.Validate(), randomness.ErrInvalidBatch)

	assert.ErrorIs(t, randomness.CallBatch{}.Validate(), randomness.ErrInvalidBatch)
}

func TestSetVRFCoordinatorCall(t *testing.T) {
	call, err := randomness.SetVRFCoordinatorCall(consumer, randomness.CartridgeVRFProvider)
	require.NoError(t, err)
	assert.Equal(t, randomness.EntrypointSetVRFCoordinator, call.Entrypoint())
	assert.Equal(t, []string{randomness.CartridgeVRFProvider}, call.Calldata())

	_, err = randomness.SetVRFCoordinatorCall(consumer, "nope")
	assert.ErrorIs(t, err, felt.ErrInvalidAddress)
}

func TestGetGenerationNumbersCall(t *testing.T) {
	call, err := randomness.GetGenerationNumbersCall(consumer, big.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, randomness.EntrypointGetGenerationNumbers, call.Entrypoint())
	assert.Equal(t, []string{"0x3"}, call.Calldata())

	_, err = randomness.GetGenerationNumbersCall(consumer, big.NewInt(-1))
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	cases := map[string]randomness.Mode{
		"devnet":              randomness.ModeDevnet,
		"standard":            randomness.ModeStandard,
		"production-standard": randomness.ModeStandard,
		"SAFE":                randomness.ModeSafe,
		"":                    randomness.ModeAuto,
	}
	for in, want := range cases {
		got, err := randomness.ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := randomness.ParseMode("turbo")
	assert.ErrorIs(t, err, randomness.ErrUnknownMode)
}

func TestResolveMode(t *testing.T) {
	assert.Equal(t, randomness.ModeDevnet, randomness.ResolveMode(randomness.ModeAuto, "devnet"))
	assert.Equal(t, randomness.ModeStandard, randomness.ResolveMode(randomness.ModeAuto, "sepolia"))
	assert.Equal(t, randomness.ModeSafe, randomness.ResolveMode(randomness.ModeSafe, "devnet"))
	assert.True(t, randomness.ModeSafe.IsProduction())
	assert.False(t, randomness.ModeDevnet.IsProduction())
}
