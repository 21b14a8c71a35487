package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"

	"github.com/R3E-Network/starknet_randomness/internal/chain"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
)

// invoker is the part of *account.Account used for submission.
type invoker interface {
	BuildAndSendInvokeTxn(ctx context.Context, functionCalls []rpc.InvokeFunctionCall, opts *account.TxnOptions) (rpc.AddInvokeTransactionResponse, error)
}

// AccountConfig configures a locally signing account.
type AccountConfig struct {
	RPCURL     string
	Address    string
	PublicKey  string
	PrivateKey string
	// NetworkName, when set, is reported instead of the name decoded from the
	// chain id. Local devnets reuse the sepolia chain id.
	NetworkName string
}

// AccountSubmitter signs and sends batches as one multicall invoke transaction.
type AccountSubmitter struct {
	invoker     invoker
	client      *chain.Client
	address     string
	networkName string
}

// NewAccountSubmitter dials the node and loads the account into an in-memory keystore.
func NewAccountSubmitter(ctx context.Context, cfg AccountConfig, client *chain.Client) (*AccountSubmitter, error) {
	if cfg.Address == "" || cfg.PrivateKey == "" || cfg.PublicKey == "" {
		return nil, fmt.Errorf("%w: address, public key and private key are required", randomness.ErrInvalidAccount)
	}

	provider, err := rpc.NewProvider(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect provider: %w", err)
	}

	address, err := utils.HexToFelt(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", randomness.ErrInvalidAccount, err)
	}

	privateKey, ok := new(big.Int).SetString(trimHex(cfg.PrivateKey), 16)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not hex", randomness.ErrInvalidAccount)
	}

	ks := account.SetNewMemKeystore(cfg.PublicKey, privateKey)
	acc, err := account.NewAccount(provider, address, cfg.PublicKey, ks, account.CairoV2)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	return newAccountSubmitter(acc, client, paddedAddress(address), cfg.NetworkName), nil
}

func newAccountSubmitter(inv invoker, client *chain.Client, address, networkName string) *AccountSubmitter {
	return &AccountSubmitter{
		invoker:     inv,
		client:      client,
		address:     address,
		networkName: networkName,
	}
}

// Execute submits batch atomically and returns the transaction hash.
func (a *AccountSubmitter) Execute(ctx context.Context, batch randomness.CallBatch) (string, error) {
	calls, err := toInvokeCalls(batch)
	if err != nil {
		return "", err
	}

	resp, err := a.invoker.BuildAndSendInvokeTxn(ctx, calls, nil)
	if err != nil {
		return "", err
	}
	if resp.Hash == nil {
		return "", nil
	}
	return resp.Hash.String(), nil
}

// Status reports the account and the network its node is on.
func (a *AccountSubmitter) Status(ctx context.Context) (Status, error) {
	status := Status{AccountAddress: a.address}

	chainID, err := a.client.ChainID(ctx)
	if err != nil {
		return status, err
	}
	status.Connected = true
	status.ChainID = chainID
	status.NetworkName = a.networkName
	if status.NetworkName == "" {
		status.NetworkName = chain.NetworkName(chainID)
	}
	return status, nil
}

// toInvokeCalls converts the batch preserving call order.
func toInvokeCalls(batch randomness.CallBatch) ([]rpc.InvokeFunctionCall, error) {
	calls := make([]rpc.InvokeFunctionCall, 0, len(batch))
	for i, c := range batch {
		addr, err := utils.HexToFelt(c.ContractAddress())
		if err != nil {
			return nil, fmt.Errorf("call %d (%s): contract address: %w", i, c.Entrypoint(), err)
		}
		calldata, err := utils.HexArrToFelt(c.Calldata())
		if err != nil {
			return nil, fmt.Errorf("call %d (%s): calldata: %w", i, c.Entrypoint(), err)
		}
		if calldata == nil {
			calldata = []*felt.Felt{}
		}
		calls = append(calls, rpc.InvokeFunctionCall{
			ContractAddress: addr,
			FunctionName:    c.Entrypoint(),
			CallData:        calldata,
		})
	}
	return calls, nil
}

// paddedAddress renders f as a full 66 character account address.
func paddedAddress(f *felt.Felt) string {
	return fmt.Sprintf("0x%064s", trimHex(f.String()))
}

func trimHex(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
