package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xueqianLu/ethvault/internal/keystore"
)

// UpdatePassphraseHandler rotates the passphrase of a stored key.
type UpdatePassphraseHandler struct {
	keystore *keystore.KeyStore
}

// NewUpdatePassphraseHandler creates a new UpdatePassphraseHandler.
func NewUpdatePassphraseHandler(ks *keystore.KeyStore) *UpdatePassphraseHandler {
	return &UpdatePassphraseHandler{keystore: ks}
}

// ServeHTTP implements the http.Handler interface.
func (h *UpdatePassphraseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req UpdatePassphraseRequest
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
	if err := h.keystore.Update(common.HexToAddress(req.Address), req.Passphrase, req.NewPassphrase); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
