package randomness_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/starknet_randomness/internal/randomness"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want randomness.Category
	}{
		{"UserRejectedRequestError: User rejected request", randomness.CategoryUserRejected},
		{"User rejected request", randomness.CategoryUserRejected},
		{"Account balance is insufficient to cover fee", randomness.CategoryInsufficientFunds},
		{"Invalid transaction nonce of contract at address 0x1", randomness.CategoryNonce},
		{"network mismatch: wallet on SN_MAIN", randomness.CategoryNetwork},
		{"Entry point EntryPointSelector(0x12) not found in contract.", randomness.CategoryEntrypointNotFound},
		{"Execution failed: 0x454e545259504f494e545f4e4f545f464f554e44 ('ENTRYPOINT_NOT_FOUND')", randomness.CategoryEntrypointNotFound},
		{"Execution failed. Failure reason: ('ENTRYPOINT_FAILED')", randomness.CategoryEntrypointFailed},
		{"VRF request not found for caller", randomness.CategoryVRF},
		{"multicall reverted", randomness.CategoryBatchFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got := randomness.Classify(errors.New(tt.msg))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Category)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestClassify_Passthrough(t *testing.T) {
	err := errors.New("something odd happened")
	got := randomness.Classify(err)
	assert.Equal(t, randomness.CategoryUnknown, got.Category)
	assert.Equal(t, "something odd happened", got.Message)
	assert.ErrorIs(t, got, err)
}

func TestClassify_EmptyMessage(t *testing.T) {
	got := randomness.Classify(errors.New(""))
	assert.Equal(t, randomness.CategoryUnknown, got.Category)
	assert.NotEmpty(t, got.Message)
}

func TestClassify_NestedRPCError(t *testing.T) {
	err := fmt.Errorf(`rpc error: {"code":41,"message":"Transaction execution error","data":{"execution_error":{"error":"('ENTRYPOINT_FAILED')"}}}`)
	got := randomness.Classify(err)
	assert.Equal(t, randomness.CategoryEntrypointFailed, got.Category)
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, randomness.Classify(nil))
}

func TestClassify_AlreadyClassified(t *testing.T) {
	inner := &randomness.SubmissionError{Category: randomness.CategoryNonce, Message: "x"}
	got := randomness.Classify(fmt.Errorf("wrapped: %w", inner))
	assert.Same(t, inner, got)
}
