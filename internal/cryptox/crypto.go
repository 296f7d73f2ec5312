// Package cryptox seals data with a key derived from a passphrase, using
// Argon2id for derivation and AES-GCM for encryption.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const saltSize = 16

// ErrDecrypt means the passphrase is wrong or the data was altered.
var ErrDecrypt = errors.New("wrong passphrase or corrupted data")

// DeriveKey returns a 256-bit key for passphrase and salt.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// Sealed is an encrypted payload together with what is needed to open it
// given the passphrase.
type Sealed struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts plaintext under a key derived from passphrase and a fresh
// random salt.
func Seal(plaintext, passphrase []byte) (*Sealed, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}

	aesgcm, err := newGCM(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	return &Sealed{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aesgcm.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Open decrypts s with passphrase.
func (s *Sealed) Open(passphrase []byte) ([]byte, error) {
	aesgcm, err := newGCM(DeriveKey(passphrase, s.Salt))
	if err != nil {
		return nil, err
	}
	if len(s.Nonce) != aesgcm.NonceSize() {
		return nil, ErrDecrypt
	}

	plaintext, err := aesgcm.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
