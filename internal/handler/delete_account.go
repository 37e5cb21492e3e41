package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xueqianLu/ethvault/internal/keystore"
)

// DeleteAccountHandler removes an account after proving ownership with its
// passphrase.
type DeleteAccountHandler struct {
	keystore *keystore.KeyStore
}

// NewDeleteAccountHandler creates a new DeleteAccountHandler.
func NewDeleteAccountHandler(ks *keystore.KeyStore) *DeleteAccountHandler {
	return &DeleteAccountHandler{keystore: ks}
}

// ServeHTTP implements the http.Handler interface.
func (h *DeleteAccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		badRequest(w, "address is not a valid address")
		return
	}
	if err := h.keystore.Delete(common.HexToAddress(req.Address), req.Passphrase); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
