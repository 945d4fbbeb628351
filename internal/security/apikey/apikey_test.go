package apikey

import (
	"strings"
	"testing"
)

func TestNew_Format(t *testing.T) {
	t.Parallel()

	k1, err := New()
	if err != nil {
		t.Fatal(err)
	}
	k2, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(k1, Prefix) {
		t.Fatalf("missing prefix: %q", k1)
	}
	if len(k1) != len(Prefix)+32 {
		t.Fatalf("unexpected length: %d", len(k1))
	}
	if k1 == k2 {
		t.Fatal("two generated keys must differ")
	}
}

func TestHashVerify(t *testing.T) {
	t.Parallel()

	secret := "hs_deadbeefdeadbeefdeadbeefdeadbeef"
	phc, err := Hash(Default, secret)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC format: %q", phc)
	}
	if !Verify(secret, phc) {
		t.Fatal("Verify should accept the original secret")
	}
	if Verify("hs_wrong", phc) {
		t.Fatal("Verify should reject a different secret")
	}
	if Verify(secret, "garbage") {
		t.Fatal("Verify should reject a malformed hash")
	}
}

func TestVerify_RoundTripsStoredParams(t *testing.T) {
	t.Parallel()

	// Verify must re-derive with the exact cost parameters embedded in
	// the PHC string, not the current defaults.
	cheap := Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}
	secret, err := New()
	if err != nil {
		t.Fatal(err)
	}
	phc, err := Hash(cheap, secret)
	if err != nil {
		t.Fatal(err)
	}
	if !Verify(secret, phc) {
		t.Fatal("Verify must accept a freshly issued secret")
	}
}

func TestVerify_RejectsMalformedPHC(t *testing.T) {
	t.Parallel()

	phc, err := Hash(Default, "hs_abc")
	if err != nil {
		t.Fatal(err)
	}

	for name, bad := range map[string]string{
		"empty":            "",
		"wrong algorithm":  strings.Replace(phc, "argon2id", "argon2i", 1),
		"wrong version":    strings.Replace(phc, "v=19", "v=18", 1),
		"missing segment":  phc[:strings.LastIndex(phc, "$")],
		"extra segment":    phc + "$extra",
		"bad param block":  strings.Replace(phc, "m=", "mem=", 1),
		"bad dk base64":    phc[:len(phc)-1] + "!",
		"no leading delim": strings.TrimPrefix(phc, "$"),
	} {
		if Verify("hs_abc", bad) {
			t.Errorf("%s: Verify accepted %q", name, bad)
		}
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	t.Parallel()

	h1, err := Hash(Default, "hs_abc")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(Default, "hs_abc")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("hashes of the same secret must differ (random salt)")
	}
}

func TestIndexer_Deterministic(t *testing.T) {
	t.Parallel()

	ix := NewIndexer([]byte("index-key-32-bytes-aaaaaaaaaaaaa"))
	a := ix.LookupKey("hs_one")
	b := ix.LookupKey("hs_one")
	c := ix.LookupKey("hs_two")

	if a != b {
		t.Fatal("lookup key must be deterministic")
	}
	if a == c {
		t.Fatal("different secrets should yield different lookup keys")
	}
	if len(a) != lookupKeyLen {
		t.Fatalf("unexpected lookup key length: %d", len(a))
	}

	other := NewIndexer([]byte("another-index-key-bbbbbbbbbbbbbb"))
	if other.LookupKey("hs_one") == a {
		t.Fatal("lookup key must depend on the index key")
	}
}
