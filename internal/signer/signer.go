// Package signer provides transaction and message signing over pluggable
// key storage backends.
package signer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "signer")

// Signer signs hashes, messages and transactions with a KeyManager backend.
type Signer struct {
	keyManager KeyManager
}

// New creates a Signer over the given KeyManager.
func New(keyManager KeyManager) *Signer {
	return &Signer{keyManager: keyManager}
}

// Accounts returns the addresses managed by the underlying backend.
func (s *Signer) Accounts() []common.Address {
	return s.keyManager.Accounts()
}

// CreateAccount creates a new account in the backend.
func (s *Signer) CreateAccount(passphrase string) (common.Address, error) {
	return s.keyManager.CreateAccount(passphrase)
}

// SignHash signs a raw 32-byte hash.
func (s *Signer) SignHash(address common.Address, passphrase string, hash []byte) ([]byte, error) {
	return s.keyManager.SignHash(address, passphrase, hash)
}

// SignTx signs a transaction with chain-bound replay protection.
func (s *Signer) SignTx(address common.Address, passphrase string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return s.keyManager.SignTx(address, passphrase, tx, chainID)
}

// SignMessage signs an arbitrary message under the EIP-191 signed data
// standard. The returned signature has V adjusted to 27/28 as expected by
// eth_sign consumers.
func (s *Signer) SignMessage(address common.Address, passphrase string, message []byte) ([]byte, error) {
	signature, err := s.keyManager.SignHash(address, passphrase, TextHash(message))
	if err != nil {
		return nil, err
	}
	signature[64] += 27
	return signature, nil
}

// TextHash computes the EIP-191 hash of a message:
// keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
func TextHash(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}
