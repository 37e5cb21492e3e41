package keystore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

// testScrypt keeps KDF cost negligible so tests stay fast. Production
// presets are exercised separately.
var testScrypt = CustomScrypt(4, 1)

func generateKey(t *testing.T) *Key {
	t.Helper()
	key, err := newKey()
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := generateKey(t)
	keyJSON, err := EncryptKey(key, "correct-horse", testScrypt)
	require.NoError(t, err)

	decrypted, err := DecryptKey(keyJSON, "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, key.Address, decrypted.Address)
	assert.Equal(t, crypto.FromECDSA(key.PrivateKey), crypto.FromECDSA(decrypted.PrivateKey))
	assert.Equal(t, key.Id, decrypted.Id)
}

func TestLightScryptRoundTrip(t *testing.T) {
	key := generateKey(t)
	keyJSON, err := EncryptKey(key, "pass", LightScrypt)
	require.NoError(t, err)
	decrypted, err := DecryptKey(keyJSON, "pass")
	require.NoError(t, err)
	assert.Equal(t, key.Address, decrypted.Address)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	key := generateKey(t)
	keyJSON, err := EncryptKey(key, "right", testScrypt)
	require.NoError(t, err)

	_, err = DecryptKey(keyJSON, "wrong")
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	key := generateKey(t)
	keyJSON, err := EncryptKey(key, "pass", testScrypt)
	require.NoError(t, err)

	var parsed encryptedKeyJSON
	require.NoError(t, json.Unmarshal(keyJSON, &parsed))
	ct, err := hex.DecodeString(parsed.Crypto.CipherText)
	require.NoError(t, err)
	ct[0] ^= 0xff
	parsed.Crypto.CipherText = hex.EncodeToString(ct)
	tampered, err := json.Marshal(parsed)
	require.NoError(t, err)

	// Tampering and a wrong passphrase are indistinguishable.
	_, err = DecryptKey(tampered, "pass")
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestKeyFileFormat(t *testing.T) {
	key := generateKey(t)
	keyJSON, err := EncryptKey(key, "pass", testScrypt)
	require.NoError(t, err)

	var parsed struct {
		Address string `json:"address"`
		Id      string `json:"id"`
		Version int    `json:"version"`
		Crypto  struct {
			Cipher       string `json:"cipher"`
			CipherText   string `json:"ciphertext"`
			CipherParams struct {
				IV string `json:"iv"`
			} `json:"cipherparams"`
			KDF       string                 `json:"kdf"`
			KDFParams map[string]interface{} `json:"kdfparams"`
			MAC       string                 `json:"mac"`
		} `json:"crypto"`
	}
	require.NoError(t, json.Unmarshal(keyJSON, &parsed))

	assert.Equal(t, 3, parsed.Version)
	assert.Equal(t, hex.EncodeToString(key.Address[:]), parsed.Address)
	assert.Equal(t, "aes-128-ctr", parsed.Crypto.Cipher)
	assert.Equal(t, "scrypt", parsed.Crypto.KDF)
	assert.Equal(t, float64(4), parsed.Crypto.KDFParams["n"])
	assert.Equal(t, float64(8), parsed.Crypto.KDFParams["r"])
	assert.Equal(t, float64(1), parsed.Crypto.KDFParams["p"])
	assert.Equal(t, float64(32), parsed.Crypto.KDFParams["dklen"])
	assert.Len(t, parsed.Crypto.CipherParams.IV, 32)
	assert.Len(t, parsed.Crypto.MAC, 64)
	_, err = uuid.Parse(parsed.Id)
	assert.NoError(t, err)
}

func TestFreshSaltPerEncryption(t *testing.T) {
	key := generateKey(t)
	a, err := EncryptKey(key, "pass", testScrypt)
	require.NoError(t, err)
	b, err := EncryptKey(key, "pass", testScrypt)
	require.NoError(t, err)

	var pa, pb encryptedKeyJSON
	require.NoError(t, json.Unmarshal(a, &pa))
	require.NoError(t, json.Unmarshal(b, &pb))
	assert.NotEqual(t, pa.Crypto.KDFParams["salt"], pb.Crypto.KDFParams["salt"])
	assert.NotEqual(t, pa.Crypto.CipherText, pb.Crypto.CipherText)
}

func TestScryptCostValidation(t *testing.T) {
	require.NoError(t, StandardScrypt.validate())
	require.NoError(t, LightScrypt.validate())
	require.Error(t, CustomScrypt(0, 1).validate())
	require.Error(t, CustomScrypt(1, 1).validate())
	require.Error(t, CustomScrypt(3, 1).validate())
	require.Error(t, CustomScrypt(4, 0).validate())

	_, err := EncryptKey(generateKey(t), "pass", CustomScrypt(5, 1))
	require.Error(t, err)
}

// Wrong-typed or undersized kdfparams must fail structurally before any
// derivation runs, never reach the KDF stage.
func TestDecryptRejectsWrongShapedKDFParams(t *testing.T) {
	key := generateKey(t)
	keyJSON, err := EncryptKey(key, "pass", testScrypt)
	require.NoError(t, err)

	mutate := func(name string, field string, value interface{}) {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(keyJSON, &m))
		params := m["crypto"].(map[string]interface{})["kdfparams"].(map[string]interface{})
		params[field] = value
		data, err := json.Marshal(m)
		require.NoError(t, err)

		_, err = DecryptKey(data, "pass")
		require.Truef(t, IsMalformed(err), "%s: expected malformed error, got %v", name, err)
	}

	mutate("string n", "n", "4")
	mutate("bool r", "r", true)
	mutate("object p", "p", map[string]interface{}{})
	mutate("string dklen", "dklen", "32")
	mutate("dklen below mac coverage", "dklen", float64(16))
}

// pbkdf2 keyfiles are accepted on decrypt for interop with other tools.
func TestDecryptPBKDF2KeyFile(t *testing.T) {
	key := generateKey(t)
	const passphrase = "pbkdf2-pass"
	salt := []byte("0123456789abcdef0123456789abcdef")
	derived := pbkdf2.Key([]byte(passphrase), salt, 64, 32, sha256.New)
	iv := []byte("0123456789abcdef")
	cipherText, err := aesCTRXOR(derived[:16], crypto.FromECDSA(key.PrivateKey), iv)
	require.NoError(t, err)
	mac := crypto.Keccak256(derived[16:32], cipherText)

	keyJSON, err := json.Marshal(encryptedKeyJSON{
		Address: hex.EncodeToString(key.Address[:]),
		Crypto: CryptoJSON{
			Cipher:       "aes-128-ctr",
			CipherText:   hex.EncodeToString(cipherText),
			CipherParams: cipherparamsJSON{IV: hex.EncodeToString(iv)},
			KDF:          "pbkdf2",
			KDFParams: map[string]interface{}{
				"c":     64,
				"prf":   "hmac-sha256",
				"dklen": 32,
				"salt":  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(mac),
		},
		Id:      uuid.NewString(),
		Version: 3,
	})
	require.NoError(t, err)

	decrypted, err := DecryptKey(keyJSON, passphrase)
	require.NoError(t, err)
	assert.Equal(t, key.Address, decrypted.Address)

	_, err = DecryptKey(keyJSON, "wrong")
	require.ErrorIs(t, err, ErrDecrypt)

	// A non-numeric iteration count is a structural failure.
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(keyJSON, &m))
	m["crypto"].(map[string]interface{})["kdfparams"].(map[string]interface{})["c"] = "64"
	bad, err := json.Marshal(m)
	require.NoError(t, err)
	_, err = DecryptKey(bad, passphrase)
	require.True(t, IsMalformed(err))
}
