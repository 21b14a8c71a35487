package chain_test

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/R3E-Network/starknet_randomness/internal/chain"
	"github.com/R3E-Network/starknet_randomness/pkg/testutil"
)

func TestRandomnessContract_GetGenerationNumbers(t *testing.T) {
	var gotCalldata []string
	client := newTestClient(t, map[string]testutil.RPCHandler{
		"starknet_call": func(params json.RawMessage) (interface{}, *testutil.RPCError) {
			var p struct {
				Request struct {
					Calldata []string `json:"calldata"`
				} `json:"request"`
			}
			_ = json.Unmarshal(params, &p)
			gotCalldata = p.Request.Calldata
			return []string{"0x3", "0x5", "0x11", "0x2a"}, nil
		},
	})

	contract := chain.NewRandomnessContract(client, consumer)
	numbers, err := contract.GetGenerationNumbers(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetGenerationNumbers: %v", err)
	}
	if !reflect.DeepEqual(numbers, []uint64{5, 17, 42}) {
		t.Fatalf("numbers = %v", numbers)
	}
	if !reflect.DeepEqual(gotCalldata, []string{"0x9"}) {
		t.Fatalf("calldata = %v", gotCalldata)
	}
}

func TestRandomnessContract_Revert(t *testing.T) {
	client := newTestClient(t, map[string]testutil.RPCHandler{
		"starknet_call": func(json.RawMessage) (interface{}, *testutil.RPCError) {
			return nil, &testutil.RPCError{Code: chain.ErrCodeContractError, Message: "Contract error"}
		},
	})

	_, err := chain.NewRandomnessContract(client, consumer).GetGenerationNumbers(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseU64Array(t *testing.T) {
	got, err := chain.ParseU64Array([]string{"0x0"})
	if err != nil || len(got) != 0 {
		t.Fatalf("empty array: %v %v", got, err)
	}

	bad := [][]string{
		nil,
		{"0x2", "0x1"},
		{"0x1", "0x10000000000000000"},
		{"zz"},
	}
	for _, in := range bad {
		if _, err := chain.ParseU64Array(in); err == nil {
			t.Errorf("ParseU64Array(%v) should fail", in)
		}
	}
}
