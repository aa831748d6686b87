package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

const leeway = 30 * time.Second

// Options configures an Issuer. Alg is EdDSA or HS256; EdDSA takes its key
// from Ed25519Seed (base64, 32 bytes) or generates an ephemeral one when
// the seed is empty.
type Options struct {
	Issuer      string
	Audience    string
	AccessTTL   time.Duration
	Alg         string
	KID         string
	Ed25519Seed string
	HS256Secret string
}

// Issuer signs and validates access tokens under a single active key.
type Issuer struct {
	iss       string
	aud       string
	accessTTL time.Duration
	kid       string

	method jwtv5.SigningMethod
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	secret []byte
}

func NewIssuer(opts Options) (*Issuer, error) {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	i := &Issuer{
		iss:       opts.Issuer,
		aud:       opts.Audience,
		accessTTL: opts.AccessTTL,
		kid:       opts.KID,
	}
	switch opts.Alg {
	case "", "EdDSA":
		i.method = jwtv5.SigningMethodEdDSA
		if opts.Ed25519Seed == "" {
			// ephemeral dev key; tokens do not survive a restart
			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return nil, err
			}
			i.priv, i.pub = priv, pub
			break
		}
		seed, err := base64.StdEncoding.DecodeString(opts.Ed25519Seed)
		if err != nil {
			seed, err = base64.RawStdEncoding.DecodeString(opts.Ed25519Seed)
		}
		if err != nil {
			return nil, fmt.Errorf("jwt: decode ed25519 seed: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("jwt: ed25519 seed is %d bytes, want %d", len(seed), ed25519.SeedSize)
		}
		i.priv = ed25519.NewKeyFromSeed(seed)
		i.pub = i.priv.Public().(ed25519.PublicKey)
	case "HS256":
		if opts.HS256Secret == "" {
			return nil, errors.New("jwt: HS256 requires a secret")
		}
		i.method = jwtv5.SigningMethodHS256
		i.secret = []byte(opts.HS256Secret)
	default:
		return nil, fmt.Errorf("jwt: unsupported alg %q", opts.Alg)
	}
	return i, nil
}

// NewSeed returns a fresh base64 Ed25519 seed for jwt.ed25519_seed.
func NewSeed() (string, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(seed), nil
}

func (i *Issuer) signingKey() any {
	if i.method == jwtv5.SigningMethodHS256 {
		return i.secret
	}
	return i.priv
}

// Keyfunc selects the verification key, insisting the token's kid matches
// the active one when both are set.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && i.kid != "" && kid != i.kid {
			return nil, fmt.Errorf("jwt: unknown kid %q", kid)
		}
		if i.method == jwtv5.SigningMethodHS256 {
			return i.secret, nil
		}
		return i.pub, nil
	}
}

// IssueAccess mints a signed access token for a user/session and returns
// it with its expiry.
func (i *Issuer) IssueAccess(userID, sessionID, region string, isPaid bool) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.accessTTL)

	claims := &AccessClaims{
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.iss,
			Subject:   userID,
			Audience:  jwtv5.ClaimStrings{i.aud},
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
		SessionID: sessionID,
		Region:    region,
		IsPaid:    isPaid,
	}
	tk := jwtv5.NewWithClaims(i.method, claims)
	if i.kid != "" {
		tk.Header["kid"] = i.kid
	}
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.signingKey())
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAccess validates signature, issuer, audience, and time claims.
// Expired tokens return ErrTokenExpired; every other failure maps to
// ErrTokenInvalid so callers cannot leak the reason.
func (i *Issuer) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwtv5.ParseWithClaims(token, claims, i.Keyfunc(),
		jwtv5.WithValidMethods([]string{i.method.Alg()}),
		jwtv5.WithIssuer(i.iss),
		jwtv5.WithAudience(i.aud),
		jwtv5.WithLeeway(leeway),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ----- JWKS -----

type jwk struct {
	Kty string `json:"kty"` // "OKP"
	Crv string `json:"crv"` // "Ed25519"
	Kid string `json:"kid"`
	Alg string `json:"alg"` // "EdDSA"
	Use string `json:"use"` // "sig"
	X   string `json:"x"`   // base64url(pub)
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// JWKSJSON exposes the active public key as a JWKS document. HS256 issuers
// have no public key and return an empty set.
func (i *Issuer) JWKSJSON() []byte {
	doc := jwks{Keys: []jwk{}}
	if i.method == jwtv5.SigningMethodEdDSA {
		doc.Keys = append(doc.Keys, jwk{
			Kty: "OKP",
			Crv: "Ed25519",
			Kid: i.kid,
			Alg: "EdDSA",
			Use: "sig",
			X:   base64.RawURLEncoding.EncodeToString(i.pub),
		})
	}
	b, _ := json.Marshal(doc)
	return b
}
