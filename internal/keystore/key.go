package keystore

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Key is decrypted key material. It only exists in memory, inside an unlock
// window or for the duration of a single operation, and is zeroized with
// zeroKey as soon as it is no longer needed.
type Key struct {
	Id      uuid.UUID
	Address common.Address
	// Only the private key is stored; the public key and address derive
	// from it. Always plaintext in this struct.
	PrivateKey *ecdsa.PrivateKey
}

// Account is a logical handle to an encrypted key on disk.
type Account struct {
	Address common.Address
	Path    string
}

func newKeyFromECDSA(privateKeyECDSA *ecdsa.PrivateKey) (*Key, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Wrap(err, "could not create random uuid")
	}
	return &Key{
		Id:         id,
		Address:    crypto.PubkeyToAddress(privateKeyECDSA.PublicKey),
		PrivateKey: privateKeyECDSA,
	}, nil
}

func newKey() (*Key, error) {
	privateKeyECDSA, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "key generation failed")
	}
	return newKeyFromECDSA(privateKeyECDSA)
}

// zeroKey wipes the private key scalar from memory.
func zeroKey(k *ecdsa.PrivateKey) {
	if k == nil {
		return
	}
	b := k.D.Bits()
	for i := range b {
		b[i] = 0
	}
}

// keyFileName implements the naming convention for keyfiles:
// UTC--<created_at UTC ISO8601>--<address hex>
func keyFileName(keyAddr common.Address) string {
	ts := time.Now().UTC()
	return fmt.Sprintf("UTC--%s--%s", toISO8601(ts), hex.EncodeToString(keyAddr[:]))
}

func toISO8601(t time.Time) string {
	var tz string
	name, offset := t.Zone()
	if name == "UTC" {
		tz = "Z"
	} else {
		tz = fmt.Sprintf("%03d00", offset/3600)
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d-%02d-%02d.%09d%s",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), tz)
}

// writeKeyFile atomically writes content to file: the content goes to a
// temporary file in the target directory first and is then renamed into
// place, so a concurrent reader never observes a half-written keyfile.
func writeKeyFile(file string, content []byte) error {
	const dirPerm = 0700
	if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
		return storageErr("mkdir", filepath.Dir(file), err)
	}
	// os.CreateTemp assigns mode 0600.
	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".tmp")
	if err != nil {
		return storageErr("create", file, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return storageErr("write", file, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return storageErr("close", file, err)
	}
	if err := os.Rename(f.Name(), file); err != nil {
		os.Remove(f.Name())
		return storageErr("rename", file, err)
	}
	return nil
}
