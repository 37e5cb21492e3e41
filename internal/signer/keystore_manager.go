package signer

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/xueqianLu/ethvault/internal/keystore"
)

// KeystoreManager backs the KeyManager interface with the local encrypted
// keystore. Keys stay encrypted on disk; signing uses either the per-address
// unlock window or a one-shot passphrase scoped to the call.
type KeystoreManager struct {
	keystore *keystore.KeyStore
}

// NewKeystoreManager creates a manager over a keystore directory.
func NewKeystoreManager(keyDir string, cost keystore.ScryptCost) (*KeystoreManager, error) {
	ks, err := keystore.NewKeyStore(keyDir, cost)
	if err != nil {
		return nil, err
	}
	return &KeystoreManager{keystore: ks}, nil
}

// KeyStore exposes the underlying keystore for lifecycle operations
// (import, export, update, delete) that only the local backend supports.
func (m *KeystoreManager) KeyStore() *keystore.KeyStore {
	return m.keystore
}

// Accounts returns all addresses with a keyfile in the keystore directory.
func (m *KeystoreManager) Accounts() []common.Address {
	var addresses []common.Address
	for _, account := range m.keystore.Accounts() {
		addresses = append(addresses, account.Address)
	}
	return addresses
}

// CreateAccount generates a new key encrypted under passphrase.
func (m *KeystoreManager) CreateAccount(passphrase string) (common.Address, error) {
	account, err := m.keystore.NewAccount(passphrase)
	if err != nil {
		return common.Address{}, err
	}
	return account.Address, nil
}

// SignHash signs hash with the key of address. With an empty passphrase the
// address must be unlocked.
func (m *KeystoreManager) SignHash(address common.Address, passphrase string, hash []byte) ([]byte, error) {
	if passphrase == "" {
		return m.keystore.SignHash(address, hash)
	}
	return m.keystore.SignHashWithPassphrase(address, passphrase, hash)
}

// SignTx signs tx with the key of address under EIP-155 replay protection.
func (m *KeystoreManager) SignTx(address common.Address, passphrase string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if passphrase == "" {
		return m.keystore.SignTx(address, tx, chainID)
	}
	return m.keystore.SignTxWithPassphrase(address, passphrase, tx, chainID)
}

// Unlock decrypts the key for address and keeps it available until Lock.
func (m *KeystoreManager) Unlock(address common.Address, passphrase string) error {
	return m.keystore.Unlock(address, passphrase)
}

// TimedUnlock decrypts the key for address for the given duration.
func (m *KeystoreManager) TimedUnlock(address common.Address, passphrase string, timeout time.Duration) error {
	return m.keystore.TimedUnlock(address, passphrase, timeout)
}

// Lock discards any cached key for address.
func (m *KeystoreManager) Lock(address common.Address) {
	m.keystore.Lock(address)
}
