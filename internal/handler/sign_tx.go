package handler

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/xueqianLu/ethvault/internal/signer"
)

// SignTxHandler handles transaction signing requests.
type SignTxHandler struct {
	signer *signer.Signer
}

// NewSignTxHandler creates a new SignTxHandler.
func NewSignTxHandler(s *signer.Signer) *SignTxHandler {
	return &SignTxHandler{signer: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *SignTxHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req SignTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.From) {
		badRequest(w, "from is not a valid address")
		return
	}
	fromAddr := common.HexToAddress(req.From)

	var toAddr *common.Address
	if req.To != "" {
		if !common.IsHexAddress(req.To) {
			badRequest(w, "to is not a valid address")
			return
		}
		to := common.HexToAddress(req.To)
		toAddr = &to
	}

	if req.ChainID == "" {
		badRequest(w, "chainId is required")
		return
	}
	chainID, ok := new(big.Int).SetString(req.ChainID, 10)
	if !ok || chainID.Sign() <= 0 {
		badRequest(w, "invalid chainId")
		return
	}

	var tx *types.Transaction
	if req.GasFeeCap != nil && req.GasTipCap != nil {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     req.Nonce,
			GasFeeCap: req.GasFeeCap,
			GasTipCap: req.GasTipCap,
			Gas:       req.GasLimit,
			To:        toAddr,
			Value:     req.Value,
			Data:      req.Data,
		})
	} else {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    req.Nonce,
			GasPrice: req.GasPrice,
			Gas:      req.GasLimit,
			To:       toAddr,
			Value:    req.Value,
			Data:     req.Data,
		})
	}

	signedTx, err := h.signer.SignTx(fromAddr, req.Secret, tx, chainID)
	if err != nil {
		writeError(w, err)
		return
	}
	rawTx, err := signedTx.MarshalBinary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SignTxResponse{RawTx: common.Bytes2Hex(rawTx)})
}
