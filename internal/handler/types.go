package handler

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xueqianLu/ethvault/internal/keystore"
)

var log = logrus.WithField("prefix", "handler")

// SignTxRequest represents the request to sign a transaction. Secret is the
// account passphrase; it may be empty if the account is unlocked.
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

// CreateAccountRequest carries the passphrase for a new account.
type CreateAccountRequest struct {
	Passphrase string `json:"passphrase"`
}

// CreateAccountResponse returns the address of a new account.
type CreateAccountResponse struct {
	Address string `json:"address"`
}

// UnlockRequest unlocks an account, optionally for a bounded duration.
type UnlockRequest struct {
	Address    string `json:"address"`
	Passphrase string `json:"passphrase"`
	// DurationSeconds bounds the unlock window; zero or absent uses the
	// server's configured default.
	DurationSeconds uint64 `json:"durationSeconds,omitempty"`
}

// LockRequest locks an account.
type LockRequest struct {
	Address string `json:"address"`
}

// ImportKeyRequest imports a key into the keystore. Exactly one of
// PrivateKey (raw hex scalar), KeyFile (web3 keyfile JSON) or PresaleFile
// (presale wallet JSON) must be set.
type ImportKeyRequest struct {
	PrivateKey    string          `json:"privateKey,omitempty"`
	KeyFile       json.RawMessage `json:"keyFile,omitempty"`
	PresaleFile   json.RawMessage `json:"presaleFile,omitempty"`
	Passphrase    string          `json:"passphrase"`
	NewPassphrase string          `json:"newPassphrase,omitempty"`
}

// ExportKeyRequest re-encrypts a key under a new passphrase and returns the
// keyfile without touching the stored one.
type ExportKeyRequest struct {
	Address       string `json:"address"`
	Passphrase    string `json:"passphrase"`
	NewPassphrase string `json:"newPassphrase"`
}

// ExportKeyResponse carries the re-encrypted keyfile.
type ExportKeyResponse struct {
	KeyFile json.RawMessage `json:"keyFile"`
}

// UpdatePassphraseRequest rotates the passphrase of a stored key.
type UpdatePassphraseRequest struct {
	Address       string `json:"address"`
	Passphrase    string `json:"passphrase"`
	NewPassphrase string `json:"newPassphrase"`
}

// DeleteAccountRequest removes an account; the passphrase proves ownership.
type DeleteAccountRequest struct {
	Address    string `json:"address"`
	Passphrase string `json:"passphrase"`
}

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps keystore failures to HTTP statuses. Error payloads never
// contain key material: only the sentinel messages cross the wire.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, keystore.ErrDecrypt):
		status = http.StatusUnauthorized
	case errors.Is(err, keystore.ErrLocked):
		status = http.StatusLocked
	case errors.Is(err, keystore.ErrNoMatch):
		status = http.StatusNotFound
	case errors.Is(err, keystore.ErrAccountAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, keystore.ErrUnsupportedVersion), keystore.IsMalformed(err):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
}
