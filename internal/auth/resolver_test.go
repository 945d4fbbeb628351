package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/highshift/highshift/internal/security/apikey"
	"github.com/highshift/highshift/internal/store/core"
	"github.com/highshift/highshift/internal/store/memory"
)

func newResolver(t *testing.T) (*LookupResolver, *memory.Store, *apikey.Indexer) {
	t.Helper()
	indexer := apikey.NewIndexer([]byte("test-index-key"))
	repo := memory.New()
	return NewLookupResolver(repo, indexer), repo, indexer
}

func seedIdentity(t *testing.T, repo *memory.Store, indexer *apikey.Indexer, withLookup bool) (string, *core.Identity) {
	t.Helper()

	secret, err := apikey.New()
	if err != nil {
		t.Fatal(err)
	}
	hash, err := apikey.Hash(apikey.Default, secret)
	if err != nil {
		t.Fatal(err)
	}
	id := &core.Identity{APIKeyHash: hash}
	if withLookup {
		id.APIKeyLookup = indexer.LookupKey(secret)
	}
	if err := repo.CreateIdentity(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	return secret, id
}

func TestResolve_NarrowsByLookupKey(t *testing.T) {
	t.Parallel()
	r, repo, indexer := newResolver(t)

	secretA, idA := seedIdentity(t, repo, indexer, true)
	_, idB := seedIdentity(t, repo, indexer, true)

	got, err := r.Resolve(context.Background(), secretA)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != idA.ID {
		t.Fatalf("resolved %s, want %s (not %s)", got.ID, idA.ID, idB.ID)
	}
}

func TestResolve_LegacyIdentityWithoutLookup(t *testing.T) {
	t.Parallel()
	r, repo, indexer := newResolver(t)

	secret, id := seedIdentity(t, repo, indexer, false)

	got, err := r.Resolve(context.Background(), secret)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id.ID {
		t.Fatalf("resolved %s, want %s", got.ID, id.ID)
	}
}

func TestResolve_Failures(t *testing.T) {
	t.Parallel()
	r, repo, indexer := newResolver(t)
	seedIdentity(t, repo, indexer, true)

	for _, secret := range []string{
		"",
		"not-prefixed",
		"hs_00000000000000000000000000000000",
	} {
		if _, err := r.Resolve(context.Background(), secret); !errors.Is(err, ErrInvalidSecret) {
			t.Errorf("secret %q: expected ErrInvalidSecret, got %v", secret, err)
		}
	}
}
