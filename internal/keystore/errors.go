package keystore

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDecrypt is returned whenever a passphrase fails to decrypt a
	// keyfile. A wrong passphrase and a corrupted keyfile are deliberately
	// indistinguishable so the error cannot be used as an oracle.
	ErrDecrypt = errors.New("could not decrypt key with given password")

	// ErrLocked is returned when a signing operation is requested for an
	// address with no active unlock and no passphrase supplied.
	ErrLocked = errors.New("account is locked")

	// ErrNoMatch is returned when an operation references an address that
	// has no keyfile in the keystore directory.
	ErrNoMatch = errors.New("no key for given address")

	// ErrAccountAlreadyExists is returned by the import operations when the
	// imported key resolves to an address that is already managed.
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrUnsupportedVersion is returned when a keyfile declares a version
	// other than the supported web3 secret storage v3.
	ErrUnsupportedVersion = errors.New("unsupported keyfile version")
)

// MalformedKeyFileError reports a structural problem with a keyfile, found
// before any cryptographic work is attempted.
type MalformedKeyFileError struct {
	Field  string
	Reason string
}

func (e *MalformedKeyFileError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed keyfile: %s", e.Reason)
	}
	return fmt.Sprintf("malformed keyfile: field %q: %s", e.Field, e.Reason)
}

func malformed(field, reason string) error {
	return &MalformedKeyFileError{Field: field, Reason: reason}
}

// IsMalformed reports whether err (or anything it wraps) is a
// MalformedKeyFileError.
func IsMalformed(err error) bool {
	var m *MalformedKeyFileError
	return errors.As(err, &m)
}

// StorageError wraps an I/O failure against the keystore directory.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("keystore storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}
