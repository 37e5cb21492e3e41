package signer

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// KeyManager abstracts the key storage backend, either the local encrypted
// keystore or a remote service like Vault.
//
// Passphrase semantics: an empty passphrase means "use whatever unlock state
// the backend holds for the address"; a non-empty passphrase scopes the key
// use to the single call. Backends without passphrase semantics ignore the
// argument.
type KeyManager interface {
	// Accounts returns the addresses managed by the backend.
	Accounts() []common.Address

	// CreateAccount generates a new key pair, stores it and returns its
	// address.
	CreateAccount(passphrase string) (common.Address, error)

	// SignHash signs a 32-byte hash with the key of the given address,
	// returning a 65-byte [R || S || V] signature with V being 0 or 1.
	SignHash(address common.Address, passphrase string, hash []byte) ([]byte, error)

	// SignTx signs a transaction with the key of the given address, binding
	// chainID into the signature for replay protection.
	SignTx(address common.Address, passphrase string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Unlocker is implemented by backends that keep decrypted keys in a
// process-local unlock window. The Vault backend does not: its keys never
// leave the server.
type Unlocker interface {
	Unlock(address common.Address, passphrase string) error
	TimedUnlock(address common.Address, passphrase string, timeout time.Duration) error
	Lock(address common.Address)
}
