package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/R3E-Network/starknet_randomness/internal/httputil"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/internal/serviceauth"
)

// SignerError is an error reported by the remote signer. Its text keeps the
// signer's own name and message so submission failures classify the same as
// local ones.
type SignerError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *SignerError) Error() string {
	body, _ := json.Marshal(map[string]string{"name": e.Name, "message": e.Message})
	return fmt.Sprintf("signer returned %d: %s", e.StatusCode, body)
}

// RemoteConfig configures a RemoteSubmitter.
type RemoteConfig struct {
	URL       string
	Secret    string
	ServiceID string
	Client    httputil.ServiceClientConfig
}

// RemoteSubmitter delegates signing to a signer service over HTTP.
type RemoteSubmitter struct {
	client *httputil.ServiceClient
}

type executeRequest struct {
	Calls randomness.CallBatch `json:"calls"`
}

type executeResponse struct {
	TransactionHash string `json:"transaction_hash"`
}

type signerErrorBody struct {
	Error   string `json:"error"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewRemoteSubmitter creates a client for the signer at cfg.URL.
func NewRemoteSubmitter(cfg RemoteConfig) (*RemoteSubmitter, error) {
	if cfg.URL == "" {
		return nil, errors.New("signer URL required")
	}

	clientCfg := cfg.Client
	clientCfg.BaseURL = cfg.URL
	if cfg.Secret != "" {
		gen, err := serviceauth.NewTokenGenerator(cfg.Secret, cfg.ServiceID, 0)
		if err != nil {
			return nil, err
		}
		clientCfg.TokenGenerator = gen
	}

	return &RemoteSubmitter{client: httputil.NewServiceClient(clientCfg)}, nil
}

// Execute posts the batch to the signer and returns the transaction hash.
func (s *RemoteSubmitter) Execute(ctx context.Context, batch randomness.CallBatch) (string, error) {
	resp, err := s.client.Post(ctx, "/execute", executeRequest{Calls: batch})
	if err != nil {
		return "", err
	}

	var out executeResponse
	if err := httputil.DecodeResponse(resp, &out); err != nil {
		return "", signerError(err)
	}
	return out.TransactionHash, nil
}

// Status asks the signer which account and network it serves.
func (s *RemoteSubmitter) Status(ctx context.Context) (Status, error) {
	resp, err := s.client.Get(ctx, "/status")
	if err != nil {
		return Status{}, err
	}

	var out Status
	if err := httputil.DecodeResponse(resp, &out); err != nil {
		return Status{}, signerError(err)
	}
	return out, nil
}

// signerError unwraps the signer's JSON error body when there is one.
func signerError(err error) error {
	var statusErr *httputil.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	var body signerErrorBody
	if jsonErr := json.Unmarshal([]byte(statusErr.Body), &body); jsonErr != nil {
		return &SignerError{StatusCode: statusErr.StatusCode, Message: statusErr.Body}
	}
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if statusErr.StatusCode == http.StatusUnauthorized && msg == "" {
		msg = "signer rejected service token"
	}
	return &SignerError{StatusCode: statusErr.StatusCode, Name: body.Name, Message: msg}
}
