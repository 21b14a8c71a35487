// Package chain provides Starknet JSON-RPC access for the randomness service.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Starknet JSON-RPC client.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	RPCURL  string
	Timeout time.Duration
}

// NewClient creates a new Starknet client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// RPCURL returns the node endpoint.
func (c *Client) RPCURL() string { return c.rpcURL }

// =============================================================================
// Core RPC Methods
// =============================================================================

// Call makes an RPC call to the Starknet node. params may be nil, a slice or a
// named-parameter object.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// ChainID returns the hex-encoded chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	result, err := c.Call(ctx, "starknet_chainId", nil)
	if err != nil {
		return "", err
	}

	var id string
	if err := json.Unmarshal(result, &id); err != nil {
		return "", err
	}
	return id, nil
}

// BlockNumber returns the latest accepted block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.Call(ctx, "starknet_blockNumber", nil)
	if err != nil {
		return 0, err
	}

	var n uint64
	if err := json.Unmarshal(result, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// =============================================================================
// Network Names
// =============================================================================

var knownChains = map[string]string{
	"SN_MAIN":    "mainnet",
	"SN_SEPOLIA": "sepolia",
}

// NetworkName maps a hex chain id to a short network name. Known ids map to
// mainnet and sepolia; any other id decodes to its lowercased ASCII form.
func NetworkName(chainID string) string {
	text := DecodeShortString(chainID)
	if name, ok := knownChains[text]; ok {
		return name
	}
	if text == "" {
		return strings.ToLower(chainID)
	}
	return strings.ToLower(text)
}

// DecodeShortString decodes a Cairo short string felt. It returns "" when the
// value is not printable ASCII.
func DecodeShortString(hexValue string) string {
	v, ok := new(big.Int).SetString(strings.TrimPrefix(strings.ToLower(hexValue), "0x"), 16)
	if !ok || v.Sign() == 0 {
		return ""
	}
	raw := v.Bytes()
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return ""
		}
	}
	return string(raw)
}
