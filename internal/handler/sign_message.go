package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xueqianLu/ethvault/internal/signer"
)

// SignMessageHandler handles EIP-191 message signing requests.
type SignMessageHandler struct {
	signer *signer.Signer
}

// NewSignMessageHandler creates a new SignMessageHandler.
func NewSignMessageHandler(s *signer.Signer) *SignMessageHandler {
	return &SignMessageHandler{signer: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *SignMessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req SignMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.From) {
		badRequest(w, "from is not a valid address")
		return
	}

	signature, err := h.signer.SignMessage(common.HexToAddress(req.From), req.Secret, []byte(req.Message))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SignMessageResponse{Signature: common.Bytes2Hex(signature)})
}
