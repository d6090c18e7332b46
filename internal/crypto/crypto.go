// Package crypto encrypts provider credentials at rest and hashes tenant API
// keys for lookup. Encrypted values carry the "enc:" prefix so configuration
// can mix plaintext and encrypted entries.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// EncryptedPrefix marks a configuration value as encrypted.
const EncryptedPrefix = "enc:"

// Encryptor does AES-256-GCM with a key derived from a passphrase.
type Encryptor struct {
	key [32]byte
}

func NewEncryptor(passphrase string) *Encryptor {
	return &Encryptor{key: sha256.Sum256([]byte(passphrase))}
}

func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return string(plaintext), nil
}

// Resolve returns v as-is unless it carries the encrypted prefix, in which
// case it decrypts the remainder.
func (e *Encryptor) Resolve(v string) (string, error) {
	if !strings.HasPrefix(v, EncryptedPrefix) {
		return v, nil
	}
	return e.Decrypt(strings.TrimPrefix(v, EncryptedPrefix))
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// HashAPIKey derives the stored lookup hash for a tenant API key.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
