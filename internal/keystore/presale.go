package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	preSaleKDFRounds = 2000
	preSaleKeyLen    = 16
)

type preSaleKeyJSON struct {
	EncSeed string `json:"encseed"`
	EthAddr string `json:"ethaddr"`
	Email   string `json:"email"`
	BtcAddr string `json:"btcaddr"`
}

// decryptPreSaleKey decrypts an Ethereum presale wallet file. The seed is
// AES-128-CBC encrypted with a pbkdf2 key derived from the passphrase; the
// private key is the Keccak-256 hash of the decrypted seed.
func decryptPreSaleKey(fileJSON []byte, passphrase string) (*Key, error) {
	preSale := new(preSaleKeyJSON)
	if err := json.Unmarshal(fileJSON, preSale); err != nil {
		return nil, malformed("", "invalid presale wallet json")
	}
	encSeedBytes, err := hex.DecodeString(preSale.EncSeed)
	if err != nil || len(encSeedBytes) < aes.BlockSize {
		return nil, malformed("encseed", "not a hex string of at least one block")
	}
	iv := encSeedBytes[:aes.BlockSize]
	cipherText := encSeedBytes[aes.BlockSize:]

	passBytes := []byte(passphrase)
	derivedKey := pbkdf2.Key(passBytes, passBytes, preSaleKDFRounds, preSaleKeyLen, sha256.New)
	seed, err := aesCBCDecrypt(derivedKey, cipherText, iv)
	if err != nil {
		return nil, err
	}
	ethPriv := crypto.Keccak256(seed)
	zeroBytes(seed)
	privateKey, err := crypto.ToECDSA(ethPriv)
	zeroBytes(ethPriv)
	if err != nil {
		return nil, ErrDecrypt
	}

	id, err := uuid.NewRandom()
	if err != nil {
		zeroKey(privateKey)
		return nil, errors.Wrap(err, "could not create random uuid")
	}
	key := &Key{
		Id:         id,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		PrivateKey: privateKey,
	}
	derivedAddr := hex.EncodeToString(key.Address[:])
	expectedAddr := strings.TrimPrefix(strings.ToLower(preSale.EthAddr), "0x")
	if expectedAddr != "" && derivedAddr != expectedAddr {
		zeroKey(privateKey)
		return nil, ErrDecrypt
	}
	return key, nil
}

func aesCBCDecrypt(key, cipherText, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes cipher setup failed")
	}
	if len(cipherText) == 0 || len(cipherText)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}
	decrypter := cipher.NewCBCDecrypter(block, iv)
	paddedPlaintext := make([]byte, len(cipherText))
	decrypter.CryptBlocks(paddedPlaintext, cipherText)
	plaintext := pkcs7Unpad(paddedPlaintext)
	if plaintext == nil {
		// Bad padding means the derived key was wrong.
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func pkcs7Unpad(in []byte) []byte {
	if len(in) == 0 {
		return nil
	}
	padding := in[len(in)-1]
	if int(padding) > len(in) || padding > aes.BlockSize || padding == 0 {
		return nil
	}
	for _, pad := range in[len(in)-int(padding):] {
		if pad != padding {
			return nil
		}
	}
	return in[:len(in)-int(padding)]
}
