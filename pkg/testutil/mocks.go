// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/R3E-Network/starknet_randomness/internal/randomness"
)

// =============================================================================
// Fake Submitter
// =============================================================================

// FakeSubmitter records the batches it is asked to execute.
type FakeSubmitter struct {
	mu      sync.Mutex
	hash    string
	err     error
	release chan struct{}
	started chan struct{}
	batches []randomness.CallBatch
}

// NewFakeSubmitter returns a submitter that answers every batch with hash.
func NewFakeSubmitter(hash string) *FakeSubmitter {
	return &FakeSubmitter{hash: hash}
}

// NewFailingSubmitter returns a submitter that fails every batch with err.
func NewFailingSubmitter(err error) *FakeSubmitter {
	return &FakeSubmitter{err: err}
}

// Hold makes Execute block until Release is called. Started is signalled once
// Execute has been entered.
func (f *FakeSubmitter) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release = make(chan struct{})
	f.started = make(chan struct{}, 16)
}

// Started is signalled whenever a held Execute is entered.
func (f *FakeSubmitter) Started() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Release unblocks held Execute calls.
func (f *FakeSubmitter) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.release != nil {
		close(f.release)
		f.release = nil
	}
}

// Execute implements randomness.Submitter.
func (f *FakeSubmitter) Execute(ctx context.Context, batch randomness.CallBatch) (string, error) {
	f.mu.Lock()
	f.batches = append(f.batches, batch)
	release, started := f.release, f.started
	hash, err := f.hash, f.err
	f.mu.Unlock()

	if release != nil {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return hash, err
}

// Calls returns how many batches were executed.
func (f *FakeSubmitter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// LastBatch returns the most recent batch, or nil.
func (f *FakeSubmitter) LastBatch() randomness.CallBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil
	}
	return f.batches[len(f.batches)-1]
}

// =============================================================================
// JSON-RPC Test Server
// =============================================================================

// RPCHandler answers one JSON-RPC method. Returning a non-nil *RPCError sends an error body.
type RPCHandler func(params json.RawMessage) (interface{}, *RPCError)

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewHTTPTestServer starts an httptest server that is closed with the test.
func NewHTTPTestServer(t testing.TB, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// NewRPCServer serves JSON-RPC requests by dispatching on the method name.
// Unknown methods get error code -32601.
func NewRPCServer(t testing.TB, handlers map[string]RPCHandler) *httptest.Server {
	t.Helper()
	return NewHTTPTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		handler, ok := handlers[req.Method]
		if !ok {
			_, _ = w.Write(MakeRPCError(-32601, "Method not found"))
			return
		}
		result, rpcErr := handler(req.Params)
		if rpcErr != nil {
			body, _ := json.Marshal(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "error": rpcErr})
			_, _ = w.Write(body)
			return
		}
		_, _ = w.Write(MakeRPCResponse(result))
	})
}

// MakeRPCResponse encodes a successful JSON-RPC response.
func MakeRPCResponse(result interface{}) []byte {
	resultJSON, _ := json.Marshal(result)
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result":  json.RawMessage(resultJSON),
	}
	data, _ := json.Marshal(resp)
	return data
}

// MakeRPCError encodes a JSON-RPC error response.
func MakeRPCError(code int, message string) []byte {
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}
