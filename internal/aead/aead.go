// Package aead provides authenticated symmetric encryption for shard,
// identity, and conversation payloads: a 256-bit key, a fresh 12-byte
// nonce per call, and a 16-byte tag. Wire layout is nonce || ciphertext
// || tag, a constant 28 bytes of overhead.
package aead

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/agentvault/synccore/internal/errs"
)

// Overhead is the constant number of bytes encryption adds: a 12-byte
// nonce plus a 16-byte authentication tag.
const Overhead = chacha20poly1305.NonceSize + chacha20poly1305.Overhead

// Encrypt seals plaintext under key, prefixing a fresh random nonce and
// appending the authentication tag.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aead: new cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("aead: read nonce: %w", err)
	}
	out := aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, out...), nil
}

// Decrypt opens a buffer produced by Encrypt. Any nonce/key mismatch or
// tag failure returns errs.ErrCipherTampered — it never returns partial
// or garbage plaintext.
func Decrypt(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aead: new cipher: %w", err)
	}
	ns := aead.NonceSize()
	if len(sealed) < ns {
		return nil, fmt.Errorf("aead: sealed buffer too short: %w", errs.ErrCipherTampered)
	}
	nonce, ciphertext := sealed[:ns], sealed[ns:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("aead: open: %w", errs.ErrCipherTampered)
	}
	return plaintext, nil
}
