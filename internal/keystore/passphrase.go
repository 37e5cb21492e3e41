package keystore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// EncryptKey encrypts key with the scrypt-derived key of passphrase and
// serializes it into a web3 secret storage v3 keyfile. scrypt at standard
// cost takes on the order of a second; callers needing responsiveness run
// this off their primary goroutine.
func EncryptKey(key *Key, passphrase string, cost ScryptCost) ([]byte, error) {
	if err := cost.validate(); err != nil {
		return nil, err
	}
	salt := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "could not read random salt")
	}
	derivedKey, err := scrypt.Key([]byte(passphrase), salt, cost.N, scryptR, cost.P, scryptDKLen)
	if err != nil {
		return nil, errors.Wrap(err, "scrypt derivation failed")
	}
	encryptKey := derivedKey[:16]
	keyBytes := crypto.FromECDSA(key.PrivateKey)

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, errors.Wrap(err, "could not read random iv")
	}
	cipherText, err := aesCTRXOR(encryptKey, keyBytes, iv)
	if err != nil {
		return nil, err
	}
	mac := crypto.Keccak256(derivedKey[16:32], cipherText)

	encrypted := encryptedKeyJSON{
		Address: hex.EncodeToString(key.Address[:]),
		Crypto: CryptoJSON{
			Cipher:     cipherAES128CTR,
			CipherText: hex.EncodeToString(cipherText),
			CipherParams: cipherparamsJSON{
				IV: hex.EncodeToString(iv),
			},
			KDF: kdfScrypt,
			KDFParams: map[string]interface{}{
				"n":     cost.N,
				"r":     scryptR,
				"p":     cost.P,
				"dklen": scryptDKLen,
				"salt":  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(mac),
		},
		Id:      key.Id.String(),
		Version: keyFileVersion,
	}
	return json.Marshal(encrypted)
}

// DecryptKey decrypts a keyfile, verifying the MAC before the ciphertext is
// trusted. A MAC mismatch means wrong passphrase or a corrupted file; both
// surface as ErrDecrypt.
func DecryptKey(data []byte, passphrase string) (*Key, error) {
	k, err := decodeKeyFile(data)
	if err != nil {
		return nil, err
	}
	derivedKey, err := deriveKeyFileKey(k.Crypto, passphrase)
	if err != nil {
		return nil, err
	}
	cipherText, err := hex.DecodeString(k.Crypto.CipherText)
	if err != nil {
		return nil, malformed("crypto.ciphertext", err.Error())
	}
	mac, err := hex.DecodeString(k.Crypto.MAC)
	if err != nil {
		return nil, malformed("crypto.mac", err.Error())
	}
	calculatedMAC := crypto.Keccak256(derivedKey[16:32], cipherText)
	if !bytes.Equal(calculatedMAC, mac) {
		return nil, ErrDecrypt
	}

	iv, err := hex.DecodeString(k.Crypto.CipherParams.IV)
	if err != nil {
		return nil, malformed("crypto.cipherparams.iv", err.Error())
	}
	plainText, err := aesCTRXOR(derivedKey[:16], cipherText, iv)
	if err != nil {
		return nil, err
	}
	privateKey, err := crypto.ToECDSA(plainText)
	zeroBytes(plainText)
	if err != nil {
		return nil, ErrDecrypt
	}

	key := &Key{
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		PrivateKey: privateKey,
	}
	if id, err := uuid.Parse(k.Id); err == nil {
		key.Id = id
	}
	if fileAddr := common.HexToAddress(k.Address); k.Address != "" && fileAddr != key.Address {
		zeroKey(privateKey)
		return nil, ErrDecrypt
	}
	return key, nil
}

func deriveKeyFileKey(cryptoJSON CryptoJSON, passphrase string) ([]byte, error) {
	authArray := []byte(passphrase)
	saltHex, _ := cryptoJSON.KDFParams["salt"].(string)
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, malformed("crypto.kdfparams.salt", err.Error())
	}
	dkLen, err := kdfNumber(cryptoJSON.KDFParams, "dklen")
	if err != nil {
		return nil, err
	}

	switch cryptoJSON.KDF {
	case kdfScrypt:
		n, err := kdfNumber(cryptoJSON.KDFParams, "n")
		if err != nil {
			return nil, err
		}
		r, err := kdfNumber(cryptoJSON.KDFParams, "r")
		if err != nil {
			return nil, err
		}
		p, err := kdfNumber(cryptoJSON.KDFParams, "p")
		if err != nil {
			return nil, err
		}
		dk, err := scrypt.Key(authArray, salt, n, r, p, dkLen)
		if err != nil {
			return nil, errors.Wrap(err, "scrypt derivation failed")
		}
		return dk, nil
	case kdfPBKDF2:
		prf, _ := cryptoJSON.KDFParams["prf"].(string)
		if prf != "hmac-sha256" {
			return nil, malformed("crypto.kdfparams.prf", "unsupported prf "+prf)
		}
		c, err := kdfNumber(cryptoJSON.KDFParams, "c")
		if err != nil {
			return nil, err
		}
		return pbkdf2.Key(authArray, salt, c, dkLen, sha256.New), nil
	}
	return nil, malformed("crypto.kdf", "unsupported kdf "+cryptoJSON.KDF)
}

func aesCTRXOR(key, inText, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes cipher setup failed")
	}
	stream := cipher.NewCTR(block, iv)
	outText := make([]byte, len(inText))
	stream.XORKeyStream(outText, inText)
	return outText, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
