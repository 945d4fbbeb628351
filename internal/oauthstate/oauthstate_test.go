package oauthstate

import (
	"context"
	"errors"
	"testing"

	"github.com/highshift/highshift/internal/cache"
)

func TestSaveAndConsume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(cache.NewMemory(""))

	rec := Record{
		IdentityID:  "id-1",
		Platform:    "twitter",
		Verifier:    "ver-1",
		RedirectURI: "https://cb.example/callback",
	}
	if err := s.Save(ctx, "state-1", rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Consume(ctx, "state-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.IdentityID != "id-1" || got.Platform != "twitter" || got.Verifier != "ver-1" {
		t.Fatalf("bad record: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("CreatedAt must be stamped on save")
	}
}

func TestConsume_SingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(cache.NewMemory(""))

	if err := s.Save(ctx, "state-1", Record{Platform: "twitter"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Consume(ctx, "state-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Consume(ctx, "state-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("replay must fail with ErrNotFound, got %v", err)
	}
}

func TestConsume_Unknown(t *testing.T) {
	t.Parallel()

	s := New(cache.NewMemory(""))
	if _, err := s.Consume(context.Background(), "never-saved"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
