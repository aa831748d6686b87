package secretbox

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"
)

var testKey = []byte("0123456789abcdef0123456789abcdef") // 32 bytes

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	box, err := New(base64.StdEncoding.EncodeToString(testKey))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const plain = "v4.refresh.2ZkT1xw"
	sealed, err := box.Seal(plain)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.Contains(sealed, "|") {
		t.Fatalf("sealed value %q missing separator", sealed)
	}
	got, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != plain {
		t.Fatalf("Open = %q, want %q", got, plain)
	}

	// Fresh nonce per seal.
	again, err := box.Seal(plain)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if again == sealed {
		t.Fatal("two seals of the same value must differ")
	}
}

func TestKeyEncodings(t *testing.T) {
	t.Parallel()

	keys := []string{
		base64.StdEncoding.EncodeToString(testKey),
		base64.RawStdEncoding.EncodeToString(testKey),
		hex.EncodeToString(testKey),
		string(testKey),
	}
	for _, k := range keys {
		box, err := New(k)
		if err != nil {
			t.Fatalf("New(%q): %v", k, err)
		}
		sealed, err := box.Seal("payload")
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if got, err := box.Open(sealed); err != nil || got != "payload" {
			t.Fatalf("Open = %q, %v", got, err)
		}
	}

	if _, err := New("short"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	t.Parallel()

	box, err := New(string(testKey))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sealed, err := box.Seal("payload")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := box.Open("no-separator"); err == nil {
		t.Fatal("expected error for malformed input")
	}

	parts := strings.SplitN(sealed, "|", 2)
	ct, _ := base64.StdEncoding.DecodeString(parts[1])
	ct[0] ^= 0xff
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(ct)
	if _, err := box.Open(tampered); err == nil {
		t.Fatal("expected auth failure for tampered ciphertext")
	}

	other, err := New("ffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := other.Open(sealed); err == nil {
		t.Fatal("expected auth failure under a different key")
	}
}
