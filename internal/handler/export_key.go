package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xueqianLu/ethvault/internal/keystore"
)

// ExportKeyHandler re-encrypts a stored key under a caller-chosen
// passphrase and returns the keyfile bytes. The stored keyfile is not
// modified.
type ExportKeyHandler struct {
	keystore *keystore.KeyStore
}

// NewExportKeyHandler creates a new ExportKeyHandler.
func NewExportKeyHandler(ks *keystore.KeyStore) *ExportKeyHandler {
	return &ExportKeyHandler{keystore: ks}
}

// ServeHTTP implements the http.Handler interface.
func (h *ExportKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req ExportKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		badRequest(w, "address is not a valid address")
		return
	}
	if req.NewPassphrase == "" {
		badRequest(w, "newPassphrase is required")
		return
	}
	keyJSON, err := h.keystore.Export(common.HexToAddress(req.Address), req.Passphrase, req.NewPassphrase)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExportKeyResponse{KeyFile: keyJSON})
}
