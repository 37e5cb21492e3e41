package handler

import (
	"net/http"

	"github.com/xueqianLu/ethvault/internal/signer"
)

// AccountsHandler lists the managed accounts.
type AccountsHandler struct {
	keyManager signer.KeyManager
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(km signer.KeyManager) *AccountsHandler {
	return &AccountsHandler{keyManager: km}
}

// ServeHTTP implements the http.Handler interface.
func (h *AccountsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	addresses := []string{}
	for _, addr := range h.keyManager.Accounts() {
		addresses = append(addresses, addr.Hex())
	}
	writeJSON(w, http.StatusOK, addresses)
}
