package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xueqianLu/ethvault/internal/signer"
)

// UnlockHandler unlocks an account, either indefinitely or for a bounded
// window.
type UnlockHandler struct {
	unlocker       signer.Unlocker
	defaultTimeout time.Duration
}

// NewUnlockHandler creates a new UnlockHandler. defaultTimeout applies when
// a request does not specify a duration; zero means indefinite.
func NewUnlockHandler(u signer.Unlocker, defaultTimeout time.Duration) *UnlockHandler {
	return &UnlockHandler{unlocker: u, defaultTimeout: defaultTimeout}
}

// ServeHTTP implements the http.Handler interface.
func (h *UnlockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		badRequest(w, "address is not a valid address")
		return
	}
	addr := common.HexToAddress(req.Address)

	timeout := h.defaultTimeout
	if req.DurationSeconds > 0 {
		timeout = time.Duration(req.DurationSeconds) * time.Second
	}
	var err error
	if timeout > 0 {
		err = h.unlocker.TimedUnlock(addr, req.Passphrase, timeout)
	} else {
		err = h.unlocker.Unlock(addr, req.Passphrase)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LockHandler locks an account, discarding any cached key material.
type LockHandler struct {
	unlocker signer.Unlocker
}

// NewLockHandler creates a new LockHandler.
func NewLockHandler(u signer.Unlocker) *LockHandler {
	return &LockHandler{unlocker: u}
}

// ServeHTTP implements the http.Handler interface.
func (h *LockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		badRequest(w, "address is not a valid address")
		return
	}
	h.unlocker.Lock(common.HexToAddress(req.Address))
	w.WriteHeader(http.StatusNoContent)
}
