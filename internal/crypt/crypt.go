// Package crypt implements value-at-rest encryption for the scan store: an
// AEAD with authenticated framing, matching spec §4.C's "nonce ‖
// ciphertext ‖ tag" contract. The spec calls out ChaCha20 as the reference
// cipher and accepts "any AEAD with equivalent semantics" — we use
// XChaCha20-Poly1305 (golang.org/x/crypto/chacha20poly1305), the
// extended-nonce variant, so that a fresh random nonce per write (as the
// spec requires) never needs a counter or any other coordination between
// concurrent writers.
package crypt

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required process-wide secret length.
const KeySize = chacha20poly1305.KeySize

// Cipher seals and opens opaque byte runs under a single process-wide key.
// There is no rekeying, per the spec's Non-goals.
type Cipher struct {
	aead []byte // holds the raw key; aead instances are built per call since
	// chacha20poly1305.NewX is cheap and stateless beyond the key.
}

// New constructs a Cipher from a key of exactly KeySize bytes.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypt: key must be %d bytes, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Cipher{aead: k}, nil
}

// Seal encrypts plaintext, returning nonce‖ciphertext‖tag.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.aead)
	if err != nil {
		return nil, fmt.Errorf("crypt: build aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypt: read nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a nonce‖ciphertext‖tag frame produced by Seal.
func (c *Cipher) Open(frame []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.aead)
	if err != nil {
		return nil, fmt.Errorf("crypt: build aead: %w", err)
	}
	if len(frame) < aead.NonceSize() {
		return nil, fmt.Errorf("crypt: frame shorter than nonce")
	}
	nonce, ciphertext := frame[:aead.NonceSize()], frame[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypt: authentication failed: %w", err)
	}
	return plaintext, nil
}

// SealString is a convenience for the common case of a secret string field.
func (c *Cipher) SealString(s string) ([]byte, error) {
	return c.Seal([]byte(s))
}

// OpenString is the inverse of SealString.
func (c *Cipher) OpenString(frame []byte) (string, error) {
	b, err := c.Open(frame)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RandomKey generates a fresh process-wide key suitable for New.
func RandomKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("crypt: generate key: %w", err)
	}
	return key, nil
}
