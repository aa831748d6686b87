package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params are the argon2id cost settings baked into each hash. Stored
// hashes carry their own params, so changing these only affects hashes
// minted afterwards.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// Default follows the RFC 9106 low-memory recommendation.
var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

const (
	saltLen    = 16
	phcVersion = 19
)

var b64 = base64.RawStdEncoding

// Hash derives an argon2id key from plain and returns it in PHC form:
// $argon2id$v=19$m=..,t=..,p=..$<salt>$<key>.
func Hash(p Params, plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty password")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcVersion, p.Memory, p.Time, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify re-derives the key using the params embedded in the stored
// hash and compares in constant time. Anything malformed verifies
// false rather than erroring: a corrupt row reads as a wrong password.
func Verify(plain, phc string) bool {
	p, salt, stored, ok := parsePHC(phc)
	if !ok {
		return false
	}
	key := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, uint32(len(stored)))
	return subtle.ConstantTimeCompare(key, stored) == 1
}

func parsePHC(phc string) (Params, []byte, []byte, bool) {
	// ["", "argon2id", "v=19", "m=..,t=..,p=..", salt, key]
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, false
	}
	var v int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &v); err != nil || v != phcVersion {
		return Params{}, nil, nil, false
	}
	var p Params
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil || n != 3 {
		return Params{}, nil, nil, false
	}
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, false
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, false
	}
	return p, salt, key, true
}
