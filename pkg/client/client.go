// Package client is a Go SDK for the ethvault signer service.
package client

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"
)

// CreateAccountRequest carries the passphrase for a new account.
type CreateAccountRequest struct {
	Passphrase string `json:"passphrase"`
}

// CreateAccountResponse represents the response for a new account creation.
type CreateAccountResponse struct {
	Address string `json:"address"`
}

// SignTxRequest represents the request to sign a transaction.
type SignTxRequest struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Secret    string   `json:"secret,omitempty"`
	Nonce     uint64   `json:"nonce"`
	Value     *big.Int `json:"value"`
	Data      []byte   `json:"data"`
	GasLimit  uint64   `json:"gasLimit"`
	GasPrice  *big.Int `json:"gasPrice,omitempty"`  // Legacy
	GasFeeCap *big.Int `json:"gasFeeCap,omitempty"` // EIP-1559
	GasTipCap *big.Int `json:"gasTipCap,omitempty"` // EIP-1559
	ChainID   string   `json:"chainId"`
}

// SignTxResponse represents the response for a signed transaction.
type SignTxResponse struct {
	RawTx string `json:"rawTx"`
}

// SignMessageRequest represents the request to sign a message.
type SignMessageRequest struct {
	From    string `json:"from"`
	Secret  string `json:"secret,omitempty"`
	Message string `json:"message"`
}

// SignMessageResponse represents the response for a signed message.
type SignMessageResponse struct {
	Signature string `json:"signature"`
}

// UnlockRequest unlocks an account, optionally for a bounded duration.
type UnlockRequest struct {
	Address         string `json:"address"`
	Passphrase      string `json:"passphrase"`
	DurationSeconds uint64 `json:"durationSeconds,omitempty"`
}

// ImportKeyRequest imports a raw private key, keyfile or presale wallet.
type ImportKeyRequest struct {
	PrivateKey    string          `json:"privateKey,omitempty"`
	KeyFile       json.RawMessage `json:"keyFile,omitempty"`
	PresaleFile   json.RawMessage `json:"presaleFile,omitempty"`
	Passphrase    string          `json:"passphrase"`
	NewPassphrase string          `json:"newPassphrase,omitempty"`
}

// ExportKeyResponse carries a re-encrypted keyfile.
type ExportKeyResponse struct {
	KeyFile json.RawMessage `json:"keyFile"`
}

const (
	apiKeyHeader    = "X-API-Key"
	signatureHeader = "X-Signature"
	timestampHeader = "X-Timestamp"
)

// Client is a client for the ethvault signer service.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a new signer service client.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			// Leaves room for scrypt derivation at standard cost.
			Timeout: 30 * time.Second,
		},
	}
}

// Health checks the health of the signer service.
func (c *Client) Health() (string, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("service returned non-OK status: %s, body: %s", resp.Status, string(body))
	}
	return string(body), nil
}

// GetAccounts retrieves the list of accounts managed by the signer.
func (c *Client) GetAccounts() ([]string, error) {
	var accounts []string
	err := c.doRequest(http.MethodGet, "/accounts", nil, &accounts)
	return accounts, err
}

// CreateAccount requests the creation of a new account encrypted under the
// given passphrase.
func (c *Client) CreateAccount(passphrase string) (*CreateAccountResponse, error) {
	var resp CreateAccountResponse
	err := c.doRequest(http.MethodPost, "/create-account", CreateAccountRequest{Passphrase: passphrase}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unlock unlocks an account. durationSeconds of zero uses the server's
// default unlock policy.
func (c *Client) Unlock(address, passphrase string, durationSeconds uint64) error {
	return c.doRequest(http.MethodPost, "/unlock", UnlockRequest{
		Address:         address,
		Passphrase:      passphrase,
		DurationSeconds: durationSeconds,
	}, nil)
}

// Lock locks an account.
func (c *Client) Lock(address string) error {
	return c.doRequest(http.MethodPost, "/lock", map[string]string{"address": address}, nil)
}

// SignTransaction sends a transaction to the signer service to be signed.
func (c *Client) SignTransaction(req SignTxRequest) (*SignTxResponse, error) {
	var resp SignTxResponse
	if err := c.doRequest(http.MethodPost, "/sign-transaction", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignMessage sends a message to the signer service to be signed.
func (c *Client) SignMessage(req SignMessageRequest) (*SignMessageResponse, error) {
	var resp SignMessageResponse
	if err := c.doRequest(http.MethodPost, "/sign-message", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportKey imports external key material into the signer's keystore.
func (c *Client) ImportKey(req ImportKeyRequest) (*CreateAccountResponse, error) {
	var resp CreateAccountResponse
	if err := c.doRequest(http.MethodPost, "/import-key", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExportKey returns the keyfile of address re-encrypted under newPassphrase.
func (c *Client) ExportKey(address, passphrase, newPassphrase string) (json.RawMessage, error) {
	var resp ExportKeyResponse
	err := c.doRequest(http.MethodPost, "/export-key", map[string]string{
		"address":       address,
		"passphrase":    passphrase,
		"newPassphrase": newPassphrase,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.KeyFile, nil
}

// UpdatePassphrase rotates the passphrase of a stored key.
func (c *Client) UpdatePassphrase(address, passphrase, newPassphrase string) error {
	return c.doRequest(http.MethodPost, "/update-passphrase", map[string]string{
		"address":       address,
		"passphrase":    passphrase,
		"newPassphrase": newPassphrase,
	}, nil)
}

// DeleteAccount removes an account; the passphrase proves ownership.
func (c *Client) DeleteAccount(address, passphrase string) error {
	return c.doRequest(http.MethodPost, "/delete-account", map[string]string{
		"address":    address,
		"passphrase": passphrase,
	}, nil)
}

func (c *Client) doRequest(method, path string, data, result interface{}) error {
	var reqBody []byte
	var err error

	if data != nil {
		reqBody, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := c.calculateSignature(timestamp, reqBody)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set(timestampHeader, timestamp)
	req.Header.Set(signatureHeader, signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) calculateSignature(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
