package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xueqianLu/ethvault/internal/signer"
)

// CreateAccountHandler creates new accounts.
type CreateAccountHandler struct {
	keyManager signer.KeyManager
}

// NewCreateAccountHandler creates a new CreateAccountHandler.
func NewCreateAccountHandler(km signer.KeyManager) *CreateAccountHandler {
	return &CreateAccountHandler{keyManager: km}
}

// ServeHTTP implements the http.Handler interface.
func (h *CreateAccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	address, err := h.keyManager.CreateAccount(req.Passphrase)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateAccountResponse{Address: address.Hex()})
}
