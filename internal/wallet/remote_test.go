package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/starknet_randomness/internal/httputil"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/internal/serviceauth"
	"github.com/R3E-Network/starknet_randomness/pkg/testutil"
)

func TestRemoteSubmitter_Execute(t *testing.T) {
	server := testutil.NewHTTPTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/execute", r.URL.Path)
		_, err := serviceauth.ValidateToken("secret", r.Header.Get(serviceauth.ServiceTokenHeader))
		assert.NoError(t, err)

		var req struct {
			Calls []struct {
				ContractAddress string   `json:"contract_address"`
				Entrypoint      string   `json:"entrypoint"`
				Calldata        []string `json:"calldata"`
			} `json:"calls"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Calls, 2) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, randomness.EntrypointRequestRandom, req.Calls[0].Entrypoint)
		assert.Equal(t, []string{consumer, "0x2a"}, req.Calls[0].Calldata)

		httputil.WriteJSON(w, http.StatusOK, map[string]string{"transaction_hash": "0xfeed"})
	})

	sub, err := NewRemoteSubmitter(RemoteConfig{URL: server.URL, Secret: "secret", ServiceID: "randomness"})
	require.NoError(t, err)

	hash, err := sub.Execute(context.Background(), productionBatch(t))
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", hash)
}

func TestRemoteSubmitter_ErrorClassifies(t *testing.T) {
	server := testutil.NewHTTPTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"name":    "UserRejectedRequestError",
			"message": "User rejected the request",
		})
	})

	sub, err := NewRemoteSubmitter(RemoteConfig{URL: server.URL})
	require.NoError(t, err)

	_, err = sub.Execute(context.Background(), productionBatch(t))
	require.Error(t, err)

	var signerErr *SignerError
	require.ErrorAs(t, err, &signerErr)
	assert.Equal(t, http.StatusBadRequest, signerErr.StatusCode)
	assert.Equal(t, randomness.CategoryUserRejected, randomness.Classify(err).Category)
}

func TestRemoteSubmitter_Status(t *testing.T) {
	server := testutil.NewHTTPTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		httputil.WriteJSON(w, http.StatusOK, Status{Connected: true, AccountAddress: caller, NetworkName: "sepolia"})
	})

	sub, err := NewRemoteSubmitter(RemoteConfig{URL: server.URL})
	require.NoError(t, err)

	status, err := sub.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "sepolia", status.NetworkName)
}

func TestNewRemoteSubmitter_RequiresURL(t *testing.T) {
	_, err := NewRemoteSubmitter(RemoteConfig{})
	assert.Error(t, err)
}
