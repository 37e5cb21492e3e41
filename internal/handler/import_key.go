package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xueqianLu/ethvault/internal/keystore"
)

// ImportKeyHandler imports external key material: a raw hex private key, a
// web3 keyfile, or a presale wallet.
type ImportKeyHandler struct {
	keystore *keystore.KeyStore
}

// NewImportKeyHandler creates a new ImportKeyHandler.
func NewImportKeyHandler(ks *keystore.KeyStore) *ImportKeyHandler {
	return &ImportKeyHandler{keystore: ks}
}

// ServeHTTP implements the http.Handler interface.
func (h *ImportKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req ImportKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	var (
		account keystore.Account
		err     error
	)
	switch {
	case req.PrivateKey != "":
		priv, perr := crypto.HexToECDSA(req.PrivateKey)
		if perr != nil {
			badRequest(w, "privateKey is not a valid hex-encoded key")
			return
		}
		account, err = h.keystore.ImportECDSA(priv, req.Passphrase)
	case len(req.KeyFile) > 0:
		newPassphrase := req.NewPassphrase
		if newPassphrase == "" {
			newPassphrase = req.Passphrase
		}
		account, err = h.keystore.Import(req.KeyFile, req.Passphrase, newPassphrase)
	case len(req.PresaleFile) > 0:
		account, err = h.keystore.ImportPreSale(req.PresaleFile, req.Passphrase)
	default:
		badRequest(w, "one of privateKey, keyFile or presaleFile is required")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateAccountResponse{Address: account.Address.Hex()})
}
