// Package crypto encrypts individual database columns holding platform
// OAuth tokens. Each value is sealed with AES-256-GCM and stored as
// "enc:v1:<base64(nonce||ciphertext)>"; reads fall through to plaintext
// so rows written before encryption was enabled keep working.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const encPrefix = "enc:v1:"

// FieldEncryptor seals and opens single string columns. Safe for
// concurrent use.
type FieldEncryptor struct {
	aead cipher.AEAD
}

// DeriveFieldEncryptor stretches the master secret into a dedicated
// AES-256 key via HKDF-SHA256. Distinct purpose strings yield unrelated
// keys, so credential tokens and any future encrypted column never share
// key material.
func DeriveFieldEncryptor(masterSecret []byte, purpose string) (*FieldEncryptor, error) {
	kdf := hkdf.New(sha256.New, masterSecret, []byte("appapost-field-encryption"), []byte(purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	return &FieldEncryptor{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh nonce and returns the prefixed
// storage form.
func (e *FieldEncryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the "enc:v1:" prefix are
// returned untouched, which is how pre-encryption rows stay readable.
func (e *FieldEncryptor) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, encPrefix) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encPrefix))
	if err != nil {
		return "", fmt.Errorf("crypto: invalid base64: %w", err)
	}
	ns := e.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("crypto: ciphertext too short")
	}
	plaintext, err := e.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("crypto: open: %w", err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether a stored value carries the encryption prefix.
func IsEncrypted(stored string) bool {
	return strings.HasPrefix(stored, encPrefix)
}
