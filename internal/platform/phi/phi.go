// Package phi seals health data at rest with AES-256-GCM.
package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrShortCiphertext is returned when sealed data is shorter than a nonce.
var ErrShortCiphertext = errors.New("phi: ciphertext too short")

// Encryptor seals and opens byte payloads. The nonce is prepended to the
// ciphertext. Associated data binds a payload to its owner (for example a
// session id) so a sealed blob cannot be replayed under another key row.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor with the given 32-byte AES-256 key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("phi: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phi: create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Seal encrypts data, returning nonce || ciphertext.
func (e *Encryptor) Seal(data, associated []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("phi: generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, data, associated), nil
}

// Open reverses Seal. associated must match the value given to Seal.
func (e *Encryptor) Open(sealed, associated []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrShortCiphertext
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, associated)
	if err != nil {
		return nil, fmt.Errorf("phi: open: %w", err)
	}
	return plaintext, nil
}
