// Package keystore manages a directory of passphrase-encrypted secp256k1
// keys following the web3 secret storage definition, and signs hashes and
// transactions with them. Keys are decrypted only inside an explicit unlock
// window or for the duration of a single passphrase-scoped operation.
package keystore

import (
	"crypto/ecdsa"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "keystore")

// KeyStore manages the keyfiles in a single directory. The directory is the
// one shared resource: external tools may add or remove keyfiles at any
// time, so account lookups always re-read it. Unlock state is process-local
// and resets to locked on restart.
type KeyStore struct {
	registry *registry
	cost     ScryptCost

	mu       sync.Mutex
	unlocked map[common.Address]*unlocked
}

// unlocked is a cached decrypted key. A zero expiry means the unlock does
// not expire; otherwise the entry is treated as locked, and zeroized, as
// soon as it is seen past its expiry.
type unlocked struct {
	*Key
	expiry time.Time
}

func (u *unlocked) expired(now time.Time) bool {
	return !u.expiry.IsZero() && !now.Before(u.expiry)
}

// NewKeyStore creates a keystore for the given directory, creating the
// directory if needed. New keyfiles are encrypted at the given scrypt cost.
func NewKeyStore(dir string, cost ScryptCost) (*KeyStore, error) {
	if err := cost.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, storageErr("mkdir", dir, err)
	}
	return &KeyStore{
		registry: newRegistry(dir),
		cost:     cost,
		unlocked: make(map[common.Address]*unlocked),
	}, nil
}

// Dir returns the keystore directory.
func (ks *KeyStore) Dir() string { return ks.registry.dir }

// Accounts enumerates the accounts currently present in the keystore
// directory. Order is unspecified.
func (ks *KeyStore) Accounts() []Account { return ks.registry.Accounts() }

// Has reports whether addr has a keyfile in this keystore. No decryption
// happens.
func (ks *KeyStore) Has(addr common.Address) bool { return ks.registry.Has(addr) }

// Find resolves addr to its account, or fails with ErrNoMatch.
func (ks *KeyStore) Find(addr common.Address) (Account, error) { return ks.registry.Find(addr) }

// NewAccount generates a fresh key, encrypts it under passphrase and writes
// the keyfile. If the write fails nothing is registered.
func (ks *KeyStore) NewAccount(passphrase string) (Account, error) {
	key, err := newKey()
	if err != nil {
		return Account{}, err
	}
	defer zeroKey(key.PrivateKey)
	account, err := ks.writeNewKeyFile(key, passphrase)
	if err != nil {
		return Account{}, err
	}
	log.WithField("address", account.Address.Hex()).Info("Created new account")
	return account, nil
}

// Delete removes the keyfile of the given account. The passphrase must
// decrypt the key first, as proof of ownership; on a wrong passphrase the
// account is left untouched.
func (ks *KeyStore) Delete(addr common.Address, passphrase string) error {
	account, key, err := ks.getDecryptedKey(addr, passphrase)
	if err != nil {
		return err
	}
	zeroKey(key.PrivateKey)
	if err := os.Remove(account.Path); err != nil {
		return storageErr("remove", account.Path, err)
	}
	ks.Lock(addr)
	log.WithField("address", addr.Hex()).Info("Deleted account")
	return nil
}

// Unlock decrypts the key for addr and caches it until an explicit Lock.
func (ks *KeyStore) Unlock(addr common.Address, passphrase string) error {
	return ks.TimedUnlock(addr, passphrase, 0)
}

// TimedUnlock decrypts the key for addr and caches it for the given
// duration. A timeout of zero unlocks indefinitely. A later call replaces
// the previous unlock window for the address. On failure the previous state
// is unchanged.
func (ks *KeyStore) TimedUnlock(addr common.Address, passphrase string, timeout time.Duration) error {
	_, key, err := ks.getDecryptedKey(addr, passphrase)
	if err != nil {
		return err
	}
	u := &unlocked{Key: key}
	if timeout > 0 {
		u.expiry = time.Now().Add(timeout)
	}
	ks.mu.Lock()
	if prev, found := ks.unlocked[addr]; found {
		zeroKey(prev.PrivateKey)
	}
	ks.unlocked[addr] = u
	ks.mu.Unlock()
	log.WithField("address", addr.Hex()).Debug("Unlocked account")
	return nil
}

// Lock drops any cached key for addr, zeroizing it. Idempotent.
func (ks *KeyStore) Lock(addr common.Address) {
	ks.mu.Lock()
	if u, found := ks.unlocked[addr]; found {
		zeroKey(u.PrivateKey)
		delete(ks.unlocked, addr)
	}
	ks.mu.Unlock()
}

// IsUnlocked reports whether addr currently has an active unlock. An
// expired timed unlock counts as locked and is zeroized on sight.
func (ks *KeyStore) IsUnlocked(addr common.Address) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	_, err := ks.unlockedKey(addr)
	return err == nil
}

// unlockedKey returns the cached key for addr. Callers hold ks.mu and must
// not retain the key past the critical section.
func (ks *KeyStore) unlockedKey(addr common.Address) (*Key, error) {
	u, found := ks.unlocked[addr]
	if !found {
		return nil, ErrLocked
	}
	if u.expired(time.Now()) {
		zeroKey(u.PrivateKey)
		delete(ks.unlocked, addr)
		return nil, ErrLocked
	}
	return u.Key, nil
}

// SignHash signs a 32-byte hash with the key of addr, which must be
// unlocked. The signature is in the 65-byte [R || S || V] format with V
// being 0 or 1.
func (ks *KeyStore) SignHash(addr common.Address, hash []byte) ([]byte, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	key, err := ks.unlockedKey(addr)
	if err != nil {
		return nil, err
	}
	return crypto.Sign(hash, key.PrivateKey)
}

// SignHashWithPassphrase signs a 32-byte hash, decrypting the key for just
// this call and discarding it afterwards regardless of outcome.
func (ks *KeyStore) SignHashWithPassphrase(addr common.Address, passphrase string, hash []byte) ([]byte, error) {
	_, key, err := ks.getDecryptedKey(addr, passphrase)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key.PrivateKey)
	return crypto.Sign(hash, key.PrivateKey)
}

// SignTx signs a transaction with the key of addr, which must be unlocked.
// The chain ID is bound into the signature for replay protection, so the
// result verifies only against that chain.
func (ks *KeyStore) SignTx(addr common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	key, err := ks.unlockedKey(addr)
	if err != nil {
		return nil, err
	}
	return signTxWithKey(key.PrivateKey, tx, chainID)
}

// SignTxWithPassphrase is like SignTx with a one-shot unlock scoped to the
// call.
func (ks *KeyStore) SignTxWithPassphrase(addr common.Address, passphrase string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	_, key, err := ks.getDecryptedKey(addr, passphrase)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key.PrivateKey)
	return signTxWithKey(key.PrivateKey, tx, chainID)
}

func signTxWithKey(key *ecdsa.PrivateKey, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("chain id must be a positive integer")
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, errors.Wrap(err, "transaction signing failed")
	}
	return signed, nil
}

// Update changes the passphrase of an existing keyfile. The key is
// re-encrypted with a fresh salt and the keyfile replaced atomically; if
// anything fails after decryption the original file is left intact.
func (ks *KeyStore) Update(addr common.Address, passphrase, newPassphrase string) error {
	account, key, err := ks.getDecryptedKey(addr, passphrase)
	if err != nil {
		return err
	}
	defer zeroKey(key.PrivateKey)
	keyJSON, err := EncryptKey(key, newPassphrase, ks.cost)
	if err != nil {
		return err
	}
	if err := writeKeyFile(account.Path, keyJSON); err != nil {
		return err
	}
	log.WithField("address", addr.Hex()).Info("Updated account passphrase")
	return nil
}

// Export re-encrypts the key of addr under newPassphrase and returns the
// resulting keyfile bytes. The stored keyfile is unchanged.
func (ks *KeyStore) Export(addr common.Address, passphrase, newPassphrase string) ([]byte, error) {
	_, key, err := ks.getDecryptedKey(addr, passphrase)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key.PrivateKey)
	return EncryptKey(key, newPassphrase, ks.cost)
}

// ImportECDSA stores a raw private key encrypted under passphrase. An
// already-managed address is rejected, never overwritten. The keystore
// takes ownership of priv: its scalar is zeroized before the call returns,
// whether or not the import succeeds.
func (ks *KeyStore) ImportECDSA(priv *ecdsa.PrivateKey, passphrase string) (Account, error) {
	key, err := newKeyFromECDSA(priv)
	if err != nil {
		return Account{}, err
	}
	defer zeroKey(key.PrivateKey)
	return ks.importKey(key, passphrase)
}

// Import decrypts the given keyfile with passphrase and stores it
// re-encrypted under newPassphrase.
func (ks *KeyStore) Import(keyJSON []byte, passphrase, newPassphrase string) (Account, error) {
	key, err := DecryptKey(keyJSON, passphrase)
	if err != nil {
		return Account{}, err
	}
	defer zeroKey(key.PrivateKey)
	return ks.importKey(key, newPassphrase)
}

// ImportPreSale decrypts an Ethereum presale wallet and stores the key
// encrypted under the same passphrase.
func (ks *KeyStore) ImportPreSale(keyJSON []byte, passphrase string) (Account, error) {
	key, err := decryptPreSaleKey(keyJSON, passphrase)
	if err != nil {
		return Account{}, err
	}
	defer zeroKey(key.PrivateKey)
	return ks.importKey(key, passphrase)
}

func (ks *KeyStore) importKey(key *Key, passphrase string) (Account, error) {
	if ks.registry.Has(key.Address) {
		return Account{}, ErrAccountAlreadyExists
	}
	account, err := ks.writeNewKeyFile(key, passphrase)
	if err != nil {
		return Account{}, err
	}
	log.WithField("address", account.Address.Hex()).Info("Imported account")
	return account, nil
}

func (ks *KeyStore) writeNewKeyFile(key *Key, passphrase string) (Account, error) {
	keyJSON, err := EncryptKey(key, passphrase, ks.cost)
	if err != nil {
		return Account{}, err
	}
	path := filepath.Join(ks.registry.dir, keyFileName(key.Address))
	if err := writeKeyFile(path, keyJSON); err != nil {
		return Account{}, err
	}
	return Account{Address: key.Address, Path: path}, nil
}

// getDecryptedKey resolves addr to its keyfile and decrypts it. The caller
// owns the returned key and must zeroize it.
func (ks *KeyStore) getDecryptedKey(addr common.Address, passphrase string) (Account, *Key, error) {
	account, err := ks.registry.Find(addr)
	if err != nil {
		return Account{}, nil, err
	}
	keyJSON, err := os.ReadFile(account.Path)
	if err != nil {
		return Account{}, nil, storageErr("read", account.Path, err)
	}
	key, err := DecryptKey(keyJSON, passphrase)
	if err != nil {
		return Account{}, nil, err
	}
	if key.Address != addr {
		zeroKey(key.PrivateKey)
		return Account{}, nil, ErrDecrypt
	}
	return account, key, nil
}
