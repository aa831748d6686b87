// Package token mints and fingerprints the opaque refresh tokens that
// anchor a session lineage.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

var encoding = base64.RawURLEncoding

// NewOpaque returns nBytes of fresh entropy as a url-safe string with
// no padding. Session refresh tokens are minted from 32 bytes.
func NewOpaque(nBytes int) (string, error) {
	raw := make([]byte, nBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return encoding.EncodeToString(raw), nil
}

// Digest fingerprints a token for storage lookups. Only digests are
// persisted; the raw value never touches a row.
func Digest(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return encoding.EncodeToString(sum[:])
}
