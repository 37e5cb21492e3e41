package keystore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func validKeyFileJSON(t *testing.T) map[string]interface{} {
	t.Helper()
	keyJSON, err := EncryptKey(generateKey(t), "pass", testScrypt)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(keyJSON, &m))
	return m
}

func marshal(t *testing.T, m map[string]interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return data
}

func TestDecodeValidKeyFile(t *testing.T) {
	_, err := decodeKeyFile(marshal(t, validKeyFileJSON(t)))
	require.NoError(t, err)
}

func TestDecodeRejectsNonJSON(t *testing.T) {
	_, err := decodeKeyFile([]byte("not json"))
	require.True(t, IsMalformed(err))
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	for _, version := range []interface{}{1, 2, 4, "3"} {
		m := validKeyFileJSON(t)
		m["version"] = version
		_, err := decodeKeyFile(marshal(t, m))
		if _, isInt := version.(int); isInt {
			require.ErrorIs(t, err, ErrUnsupportedVersion)
		} else {
			// A string version does not unmarshal into the int field.
			require.True(t, IsMalformed(err))
		}
	}
}

func TestDecodeStructuralValidation(t *testing.T) {
	mutate := func(name string, fn func(m map[string]interface{})) {
		m := validKeyFileJSON(t)
		fn(m)
		_, err := decodeKeyFile(marshal(t, m))
		require.Truef(t, IsMalformed(err), "%s: expected malformed error, got %v", name, err)
	}

	crypto := func(m map[string]interface{}) map[string]interface{} {
		return m["crypto"].(map[string]interface{})
	}

	mutate("unsupported cipher", func(m map[string]interface{}) {
		crypto(m)["cipher"] = "aes-256-gcm"
	})
	mutate("non-hex ciphertext", func(m map[string]interface{}) {
		crypto(m)["ciphertext"] = "zzzz"
	})
	mutate("short iv", func(m map[string]interface{}) {
		crypto(m)["cipherparams"] = map[string]interface{}{"iv": "abcd"}
	})
	mutate("short mac", func(m map[string]interface{}) {
		crypto(m)["mac"] = "abcd"
	})
	mutate("unknown kdf", func(m map[string]interface{}) {
		crypto(m)["kdf"] = "argon2id"
	})
	mutate("missing kdfparams", func(m map[string]interface{}) {
		delete(crypto(m), "kdfparams")
	})
	mutate("missing scrypt n", func(m map[string]interface{}) {
		delete(crypto(m)["kdfparams"].(map[string]interface{}), "n")
	})
	mutate("string scrypt n", func(m map[string]interface{}) {
		crypto(m)["kdfparams"].(map[string]interface{})["n"] = "4"
	})
	mutate("string dklen", func(m map[string]interface{}) {
		crypto(m)["kdfparams"].(map[string]interface{})["dklen"] = "32"
	})
	mutate("short dklen", func(m map[string]interface{}) {
		crypto(m)["kdfparams"].(map[string]interface{})["dklen"] = float64(16)
	})
	mutate("null scrypt p", func(m map[string]interface{}) {
		crypto(m)["kdfparams"].(map[string]interface{})["p"] = nil
	})
	mutate("missing salt", func(m map[string]interface{}) {
		delete(crypto(m)["kdfparams"].(map[string]interface{}), "salt")
	})
	mutate("non-hex salt", func(m map[string]interface{}) {
		crypto(m)["kdfparams"].(map[string]interface{})["salt"] = "xyz"
	})
}

// Decoding performs no KDF work, so even an absurd cost decodes instantly.
func TestDecodeDoesNotDeriveKeys(t *testing.T) {
	m := validKeyFileJSON(t)
	m["crypto"].(map[string]interface{})["kdfparams"].(map[string]interface{})["n"] = float64(1 << 30)
	_, err := decodeKeyFile(marshal(t, m))
	require.NoError(t, err)
}
