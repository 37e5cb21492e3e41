package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEmptyDir(t *testing.T) {
	r := newRegistry(t.TempDir())
	assert.Empty(t, r.Accounts())
}

func TestRegistryMissingDir(t *testing.T) {
	r := newRegistry(filepath.Join(t.TempDir(), "does-not-exist"))
	// Unreadable storage yields an empty list, not an error.
	assert.Empty(t, r.Accounts())
}

func TestRegistrySkipsJunk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.tmp"), []byte("{}"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0700))

	r := newRegistry(dir)
	assert.Empty(t, r.Accounts())
}

// The registry re-reads the directory on every call, so keyfiles dropped in
// by external tools show up without any notification.
func TestRegistrySeesExternalChanges(t *testing.T) {
	dir := t.TempDir()
	r := newRegistry(dir)
	require.Empty(t, r.Accounts())

	key := generateKey(t)
	keyJSON, err := EncryptKey(key, "pass", testScrypt)
	require.NoError(t, err)
	path := filepath.Join(dir, keyFileName(key.Address))
	require.NoError(t, os.WriteFile(path, keyJSON, 0600))

	accounts := r.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, key.Address, accounts[0].Address)
	assert.Equal(t, path, accounts[0].Path)

	found, err := r.Find(key.Address)
	require.NoError(t, err)
	assert.Equal(t, path, found.Path)
	assert.True(t, r.Has(key.Address))

	require.NoError(t, os.Remove(path))
	assert.Empty(t, r.Accounts())
	assert.False(t, r.Has(key.Address))
}
