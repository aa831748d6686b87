package jwt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T, opts Options) *Issuer {
	t.Helper()
	if opts.Issuer == "" {
		opts.Issuer = "test-issuer"
	}
	if opts.Audience == "" {
		opts.Audience = "test-aud"
	}
	iss, err := NewIssuer(opts)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestIssueAndParseEdDSA(t *testing.T) {
	t.Parallel()

	seed, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
	iss := newTestIssuer(t, Options{Alg: "EdDSA", KID: "k1", Ed25519Seed: seed, AccessTTL: time.Minute})

	signed, exp, err := iss.IssueAccess("user-1", "sess-1", "us", true)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if time.Until(exp) > time.Minute+time.Second || time.Until(exp) < 50*time.Second {
		t.Fatalf("exp %v not ~1m out", exp)
	}

	claims, err := iss.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.UserID() != "user-1" || claims.SessionID != "sess-1" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Region != "us" || !claims.IsPaid {
		t.Fatalf("custom claims = %q/%v", claims.Region, claims.IsPaid)
	}

	// Same seed, fresh issuer: key derivation is deterministic.
	again := newTestIssuer(t, Options{Alg: "EdDSA", KID: "k1", Ed25519Seed: seed, AccessTTL: time.Minute})
	if _, err := again.ParseAccess(signed); err != nil {
		t.Fatalf("ParseAccess with re-derived key: %v", err)
	}
}

func TestIssueAndParseHS256(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, Options{Alg: "HS256", KID: "k1", HS256Secret: "unit-secret", AccessTTL: time.Minute})
	signed, _, err := iss.IssueAccess("user-2", "sess-2", "", false)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	claims, err := iss.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.UserID() != "user-2" || claims.SessionID != "sess-2" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	t.Parallel()

	// TTL shorter than -leeway so the token is already stale.
	iss := newTestIssuer(t, Options{Alg: "HS256", HS256Secret: "unit-secret", AccessTTL: -2 * leeway})
	signed, _, err := iss.IssueAccess("user-3", "sess-3", "", false)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := iss.ParseAccess(signed); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestParseRejectsForeignToken(t *testing.T) {
	t.Parallel()

	a := newTestIssuer(t, Options{Alg: "EdDSA", KID: "k1", AccessTTL: time.Minute})
	b := newTestIssuer(t, Options{Alg: "EdDSA", KID: "k1", AccessTTL: time.Minute})

	signed, _, err := a.IssueAccess("user-4", "sess-4", "", false)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := b.ParseAccess(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid under foreign key, got %v", err)
	}

	// Algorithm confusion: HS256 token offered to an EdDSA issuer.
	h := newTestIssuer(t, Options{Alg: "HS256", HS256Secret: "unit-secret", AccessTTL: time.Minute})
	hsToken, _, err := h.IssueAccess("user-4", "sess-4", "", false)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := a.ParseAccess(hsToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid for wrong alg, got %v", err)
	}

	// Tampered payload.
	parts := strings.Split(signed, ".")
	parts[1] = strings.Repeat("A", len(parts[1]))
	if _, err := a.ParseAccess(strings.Join(parts, ".")); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid for tampered token, got %v", err)
	}
}

func TestParseRejectsMissingSession(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, Options{Alg: "HS256", HS256Secret: "unit-secret", AccessTTL: time.Minute})
	signed, _, err := iss.IssueAccess("user-5", "", "", false)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := iss.ParseAccess(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid for empty sid, got %v", err)
	}
}

func TestJWKSJSON(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, Options{Alg: "EdDSA", KID: "key-7", AccessTTL: time.Minute})
	var doc struct {
		Keys []map[string]string `json:"keys"`
	}
	if err := json.Unmarshal(iss.JWKSJSON(), &doc); err != nil {
		t.Fatalf("unmarshal jwks: %v", err)
	}
	if len(doc.Keys) != 1 {
		t.Fatalf("jwks keys = %d, want 1", len(doc.Keys))
	}
	k := doc.Keys[0]
	if k["kty"] != "OKP" || k["crv"] != "Ed25519" || k["kid"] != "key-7" || k["x"] == "" {
		t.Fatalf("jwk = %v", k)
	}

	hs := newTestIssuer(t, Options{Alg: "HS256", HS256Secret: "unit-secret"})
	if err := json.Unmarshal(hs.JWKSJSON(), &doc); err != nil {
		t.Fatalf("unmarshal hs jwks: %v", err)
	}
	if len(doc.Keys) != 0 {
		t.Fatal("HS256 issuer must publish no keys")
	}
}
