package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// registry enumerates the keyfiles in a keystore directory. It holds no
// state: every call re-reads the directory, so concurrent changes made by
// external tools are always reflected.
type registry struct {
	dir string
}

func newRegistry(dir string) *registry {
	return &registry{dir: dir}
}

// Accounts lists every account in the keystore directory. An empty or
// unreadable directory yields an empty list, not an error; files that do not
// parse as keyfiles are skipped. Enumeration order is unspecified.
func (r *registry) Accounts() []Account {
	files, err := os.ReadDir(r.dir)
	if err != nil {
		return nil
	}
	var accounts []Account
	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
			continue
		}
		path := filepath.Join(r.dir, file.Name())
		addr, err := readKeyFileAddress(path)
		if err != nil {
			log.WithField("path", path).WithError(err).Debug("Skipping unparseable keyfile")
			continue
		}
		accounts = append(accounts, Account{Address: addr, Path: path})
	}
	return accounts
}

// Find resolves an address to its keyfile.
func (r *registry) Find(addr common.Address) (Account, error) {
	for _, account := range r.Accounts() {
		if account.Address == addr {
			return account, nil
		}
	}
	return Account{}, ErrNoMatch
}

// Has reports whether a keyfile exists for addr.
func (r *registry) Has(addr common.Address) bool {
	_, err := r.Find(addr)
	return err == nil
}

// readKeyFileAddress extracts the address field from a keyfile without
// decrypting anything.
func readKeyFileAddress(path string) (common.Address, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.Address{}, storageErr("read", path, err)
	}
	var keyJSON struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(data, &keyJSON); err != nil {
		return common.Address{}, malformed("", "not a json keyfile")
	}
	if !common.IsHexAddress(keyJSON.Address) {
		return common.Address{}, malformed("address", "not a hex address")
	}
	return common.HexToAddress(keyJSON.Address), nil
}
