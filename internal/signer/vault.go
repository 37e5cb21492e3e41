package signer

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

// VaultManager backs the KeyManager interface with the Vault transit
// engine. Private keys are generated and held server-side; only hashes and
// signatures cross the wire, so there is no unlock state to manage and the
// passphrase argument is ignored.
type VaultManager struct {
	client      *api.Client
	transitPath string

	mu           sync.RWMutex
	addressToKey map[common.Address]string
}

// NewVaultManager connects to the transit engine at transitPath, mounting
// it if needed, and indexes the existing secp256k1 keys by address.
func NewVaultManager(client *api.Client, transitPath string) (*VaultManager, error) {
	m := &VaultManager{
		client:       client,
		transitPath:  transitPath,
		addressToKey: make(map[common.Address]string),
	}
	if err := m.mountTransit(); err != nil {
		return nil, errors.Wrap(err, "could not enable transit secrets engine")
	}
	if err := m.indexKeys(); err != nil {
		return nil, errors.Wrap(err, "could not index existing vault keys")
	}
	return m, nil
}

func (m *VaultManager) mountTransit() error {
	mounts, err := m.client.Sys().ListMounts()
	if err != nil {
		return err
	}
	if _, mounted := mounts[m.transitPath+"/"]; mounted {
		return nil
	}
	log.WithField("path", m.transitPath).Info("Enabling transit secrets engine")
	return m.client.Sys().Mount(m.transitPath, &api.MountInput{Type: "transit"})
}

func (m *VaultManager) indexKeys() error {
	secret, err := m.client.Logical().List(m.transitPath + "/keys")
	if err != nil {
		return err
	}
	if secret == nil || secret.Data["keys"] == nil {
		return nil
	}
	names, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return errors.New("unexpected key list format from vault")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		name, ok := n.(string)
		if !ok {
			continue
		}
		address, err := m.keyAddress(name)
		if err != nil {
			log.WithField("key", name).WithError(err).Warn("Skipping vault key with unreadable public key")
			continue
		}
		m.addressToKey[address] = name
	}
	log.WithField("count", len(m.addressToKey)).Info("Indexed vault transit keys")
	return nil
}

// Accounts returns all addresses with a transit key.
func (m *VaultManager) Accounts() []common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var addresses []common.Address
	for addr := range m.addressToKey {
		addresses = append(addresses, addr)
	}
	return addresses
}

// CreateAccount creates a new secp256k1 transit key. The passphrase is
// ignored: access control is Vault's job.
func (m *VaultManager) CreateAccount(_ string) (common.Address, error) {
	name := "eth-key-" + uuid.NewString()
	path := fmt.Sprintf("%s/keys/%s", m.transitPath, name)
	if _, err := m.client.Logical().Write(path, map[string]interface{}{
		"type": "secp256k1",
	}); err != nil {
		return common.Address{}, errors.Wrap(err, "could not create key in vault")
	}

	address, err := m.keyAddress(name)
	if err != nil {
		m.deleteKey(name)
		return common.Address{}, errors.Wrap(err, "could not derive address for new key")
	}

	m.mu.Lock()
	m.addressToKey[address] = name
	m.mu.Unlock()

	log.WithField("address", address.Hex()).WithField("key", name).Info("Created vault account")
	return address, nil
}

// deleteKey best-effort removes a half-created transit key.
func (m *VaultManager) deleteKey(name string) {
	configPath := fmt.Sprintf("%s/keys/%s/config", m.transitPath, name)
	if _, err := m.client.Logical().Write(configPath, map[string]interface{}{
		"deletion_allowed": true,
	}); err != nil {
		return
	}
	m.client.Logical().Delete(fmt.Sprintf("%s/keys/%s", m.transitPath, name))
}

// SignHash signs a 32-byte hash with the transit key of address. Vault
// returns only (r, s); the recovery id is found by trial recovery against
// the known address.
func (m *VaultManager) SignHash(address common.Address, _ string, hash []byte) ([]byte, error) {
	name, err := m.keyName(address)
	if err != nil {
		return nil, err
	}
	rs, err := m.transitSign(name, hash)
	if err != nil {
		return nil, err
	}
	v, err := recoverV(rs, hash, address)
	if err != nil {
		return nil, err
	}
	return append(rs, v), nil
}

// SignTx signs tx with the transit key of address, binding chainID into the
// signature.
func (m *VaultManager) SignTx(address common.Address, _ string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("chain id must be a positive integer")
	}
	txSigner := types.LatestSignerForChainID(chainID)
	txHash := txSigner.Hash(tx)
	sig, err := m.SignHash(address, "", txHash.Bytes())
	if err != nil {
		return nil, err
	}
	signed, err := tx.WithSignature(txSigner, sig)
	if err != nil {
		return nil, errors.Wrap(err, "could not attach signature")
	}
	return signed, nil
}

func (m *VaultManager) keyName(address common.Address) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.addressToKey[address]
	if !ok {
		return "", errors.Errorf("account not managed by this signer: %s", address.Hex())
	}
	return name, nil
}

// keyAddress derives the Ethereum address of a transit key from its latest
// public key version.
func (m *VaultManager) keyAddress(name string) (common.Address, error) {
	secret, err := m.client.Logical().Read(fmt.Sprintf("%s/keys/%s", m.transitPath, name))
	if err != nil {
		return common.Address{}, err
	}
	if secret == nil || secret.Data["keys"] == nil {
		return common.Address{}, errors.Errorf("key %q not found in vault", name)
	}
	versions, ok := secret.Data["keys"].(map[string]interface{})
	if !ok {
		return common.Address{}, errors.New("unexpected key data format from vault")
	}
	latest := "0"
	for v := range versions {
		if v > latest {
			latest = v
		}
	}
	keyData, ok := versions[latest].(map[string]interface{})
	if !ok {
		return common.Address{}, errors.New("unexpected key version format from vault")
	}
	pubPEM, ok := keyData["public_key"].(string)
	if !ok {
		return common.Address{}, errors.New("public key missing from vault key data")
	}

	block, _ := pem.Decode([]byte(pubPEM))
	if block == nil {
		return common.Address{}, errors.New("could not parse public key PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "could not parse DER public key")
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, errors.New("vault key is not an ECDSA public key")
	}
	return crypto.PubkeyToAddress(*ecdsaPub), nil
}

// transitSign asks Vault to sign hash and decodes the (r, s) pair into a
// 64-byte big-endian signature.
func (m *VaultManager) transitSign(name string, hash []byte) ([]byte, error) {
	path := fmt.Sprintf("%s/sign/%s/sha2-256", m.transitPath, name)
	resp, err := m.client.Logical().Write(path, map[string]interface{}{
		"input":     base64.StdEncoding.EncodeToString(hash),
		"algorithm": "secp256k1",
	})
	if err != nil {
		return nil, errors.Wrap(err, "vault signing failed")
	}
	signature, ok := resp.Data["signature"].(string)
	if !ok {
		return nil, errors.New("signature missing from vault response")
	}
	// Format: vault:v<n>:<base64url(r)>+<base64url(s)>
	parts := strings.Split(signature, ":")
	if len(parts) < 3 {
		return nil, errors.Errorf("invalid signature format from vault: %s", signature)
	}
	rsParts := strings.SplitN(parts[2], "+", 2)
	if len(rsParts) != 2 {
		return nil, errors.Errorf("invalid signature format from vault: %s", signature)
	}
	r, err := base64.RawURLEncoding.DecodeString(rsParts[0])
	if err != nil {
		return nil, errors.Wrap(err, "could not decode signature r")
	}
	s, err := base64.RawURLEncoding.DecodeString(rsParts[1])
	if err != nil {
		return nil, errors.Wrap(err, "could not decode signature s")
	}

	sig := make([]byte, 64)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(s):], s)
	return sig, nil
}

// recoverV finds the recovery id that recovers expected from the (r, s)
// signature over hash.
func recoverV(rs, hash []byte, expected common.Address) (byte, error) {
	for v := byte(0); v < 2; v++ {
		recoveredPub, err := crypto.Ecrecover(hash, append(rs[:64:64], v))
		if err != nil {
			continue
		}
		pubkey, err := crypto.UnmarshalPubkey(recoveredPub)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*pubkey) == expected {
			return v, nil
		}
	}
	return 0, errors.New("could not recover public key for signature")
}
