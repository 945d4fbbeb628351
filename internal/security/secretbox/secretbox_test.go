package secretbox

import (
	"encoding/base64"
	"os"
	"strings"
	"testing"
)

func testKey(seed byte) []byte {
	raw := make([]byte, 32)
	for i := 0; i < 32; i++ {
		raw[i] = seed + byte(i)
	}
	return raw
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	if err := UnsafeSetMasterKeyForTests(testKey(1)); err != nil {
		t.Fatal(err)
	}

	for _, msg := range []string{"", "a", "some-oauth-access-token", "unicode ✓ — token"} {
		ct, err := Encrypt(msg)
		if err != nil {
			t.Fatalf("Encrypt(%q) err: %v", msg, err)
		}
		if got := strings.Count(ct, "."); got != 2 {
			t.Fatalf("expected ivB64.tagB64.ctB64 format, got %q", ct)
		}
		pt, err := Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt err: %v", err)
		}
		if pt != msg {
			t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
		}
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	if err := UnsafeSetMasterKeyForTests(testKey(100)); err != nil {
		t.Fatal(err)
	}

	ct, err := Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	parts := strings.Split(ct, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected ct format: %q", ct)
	}

	// Flip one byte in each segment in turn; every variant must fail auth.
	for i := 0; i < 3; i++ {
		bs, err := base64.StdEncoding.DecodeString(parts[i])
		if err != nil {
			t.Fatal(err)
		}
		if len(bs) == 0 {
			t.Fatal("empty segment")
		}
		bs[0] ^= 0x01
		tampered := make([]string, 3)
		copy(tampered, parts)
		tampered[i] = base64.StdEncoding.EncodeToString(bs)

		if _, err := Decrypt(strings.Join(tampered, ".")); err == nil {
			t.Fatalf("segment %d: expected auth error, got nil", i)
		}
	}
}

func TestDecrypt_RejectsBadFormat(t *testing.T) {
	if err := UnsafeSetMasterKeyForTests(testKey(7)); err != nil {
		t.Fatal(err)
	}

	for _, ct := range []string{"", "abc", "a.b", "a.b.c.d", "!!!.!!!.!!!"} {
		if _, err := Decrypt(ct); err == nil {
			t.Fatalf("Decrypt(%q): expected error, got nil", ct)
		}
	}
}

func TestEncrypt_ErrorWhenNoKey(t *testing.T) {
	UnsafeResetForTests()
	os.Unsetenv("TOKEN_ENCRYPTION_KEY")

	if _, err := Encrypt("x"); err == nil {
		t.Fatalf("expected error when key missing")
	}
	UnsafeResetForTests()
}
