package keystore

import (
	"encoding/hex"
	"encoding/json"
)

// Keyfiles follow the web3 secret storage definition, version 3.
const keyFileVersion = 3

const (
	cipherAES128CTR = "aes-128-ctr"
	kdfScrypt       = "scrypt"
	kdfPBKDF2       = "pbkdf2"
)

type encryptedKeyJSON struct {
	Address string     `json:"address"`
	Crypto  CryptoJSON `json:"crypto"`
	Id      string     `json:"id"`
	Version int        `json:"version"`
}

// CryptoJSON is the crypto section of a web3 secret storage keyfile.
type CryptoJSON struct {
	Cipher       string                 `json:"cipher"`
	CipherText   string                 `json:"ciphertext"`
	CipherParams cipherparamsJSON       `json:"cipherparams"`
	KDF          string                 `json:"kdf"`
	KDFParams    map[string]interface{} `json:"kdfparams"`
	MAC          string                 `json:"mac"`
}

type cipherparamsJSON struct {
	IV string `json:"iv"`
}

// decodeKeyFile parses and structurally validates a keyfile. No cryptographic
// work happens here; a nil error means the KDF and decrypt stages can assume
// every field is present, hex-decodable and of a supported kind.
func decodeKeyFile(data []byte) (*encryptedKeyJSON, error) {
	k := new(encryptedKeyJSON)
	if err := json.Unmarshal(data, k); err != nil {
		return nil, malformed("", err.Error())
	}
	if k.Version != keyFileVersion {
		return nil, ErrUnsupportedVersion
	}
	if k.Crypto.Cipher != cipherAES128CTR {
		return nil, malformed("crypto.cipher", "unsupported cipher "+k.Crypto.Cipher)
	}
	if !isHex(k.Crypto.CipherText) || k.Crypto.CipherText == "" {
		return nil, malformed("crypto.ciphertext", "not a hex string")
	}
	if !isHex(k.Crypto.CipherParams.IV) || len(k.Crypto.CipherParams.IV) != 32 {
		return nil, malformed("crypto.cipherparams.iv", "expected 16 hex-encoded bytes")
	}
	if !isHex(k.Crypto.MAC) || len(k.Crypto.MAC) != 64 {
		return nil, malformed("crypto.mac", "expected 32 hex-encoded bytes")
	}
	switch k.Crypto.KDF {
	case kdfScrypt:
		if err := requireKDFNumbers(k.Crypto.KDFParams, "n", "r", "p", "dklen"); err != nil {
			return nil, err
		}
	case kdfPBKDF2:
		if err := requireKDFNumbers(k.Crypto.KDFParams, "c", "dklen"); err != nil {
			return nil, err
		}
		if prf, _ := k.Crypto.KDFParams["prf"].(string); prf == "" {
			return nil, malformed("crypto.kdfparams.prf", "missing")
		}
	default:
		return nil, malformed("crypto.kdf", "unsupported kdf "+k.Crypto.KDF)
	}
	// The derived key must cover the 16-byte cipher key and the 16-byte
	// MAC key; a shorter dklen would have the MAC read bytes the KDF
	// never promised.
	if dkLen, _ := kdfNumber(k.Crypto.KDFParams, "dklen"); dkLen < 32 {
		return nil, malformed("crypto.kdfparams.dklen", "must be at least 32")
	}
	salt, _ := k.Crypto.KDFParams["salt"].(string)
	if !isHex(salt) || salt == "" {
		return nil, malformed("crypto.kdfparams.salt", "not a hex string")
	}
	return k, nil
}

// requireKDFNumbers checks that each field is present and a number, so the
// KDF stage never sees a wrong-typed parameter.
func requireKDFNumbers(params map[string]interface{}, fields ...string) error {
	if params == nil {
		return malformed("crypto.kdfparams", "missing")
	}
	for _, f := range fields {
		if _, err := kdfNumber(params, f); err != nil {
			return err
		}
	}
	return nil
}

// kdfNumber reads a numeric kdfparams field, tolerating the float64 that
// encoding/json produces as well as the int written by EncryptKey.
func kdfNumber(params map[string]interface{}, field string) (int, error) {
	switch v := params[field].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, malformed("crypto.kdfparams."+field, "not a number")
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
