// Package secretbox seals short secrets with AES-256-GCM. The wire format
// is base64(nonce)|base64(ciphertext), so sealed values stay printable and
// can live in a text column.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nonceSizeGCM      = 12 // 96-bit nonce, the GCM recommendation
	requiredKeyLength = 32 // AES-256
	sep               = "|"
)

var ErrMalformed = errors.New("secretbox: want base64(nonce)|base64(ciphertext)")

// Box seals and opens values under a fixed 32-byte key.
type Box struct {
	aead cipher.AEAD
}

// New builds a Box from a key given as base64 (std or raw), hex, or the raw
// 32 bytes themselves. Generate one with: openssl rand -base64 32
func New(key string) (*Box, error) {
	kBytes, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(kBytes)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

func decodeKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if len(key) == 2*requiredKeyLength {
		if h, err := hex.DecodeString(key); err == nil {
			return h, nil
		}
	}
	if len(key) == requiredKeyLength {
		return []byte(key), nil
	}
	return nil, fmt.Errorf("secretbox: key must decode to %d bytes", requiredKeyLength)
}

// Seal encrypts plainText and returns base64(nonce)|base64(ciphertext).
func (b *Box) Seal(plainText string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(cipherText string) (string, error) {
	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("nonce is %d bytes, want %d", len(nonce), nonceSizeGCM)
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}
