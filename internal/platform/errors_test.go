package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFromStatus_Classification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   Kind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{429, KindRateLimited},
		{500, KindAPI},
		{400, KindAPI},
	}
	for _, tc := range cases {
		if got := FromStatus("twitter", tc.status, "").Kind; got != tc.want {
			t.Errorf("status %d classified as %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if Normalize("x", nil) != nil {
		t.Fatal("nil must pass through")
	}

	pe := NewError("x", KindAuth, "bad token")
	if got := Normalize("x", fmt.Errorf("wrap: %w", pe)); got != pe {
		t.Fatalf("wrapped platform error must pass through, got %v", got)
	}

	norm := Normalize("x", context.DeadlineExceeded)
	got, ok := AsError(norm)
	if !ok || got.Kind != KindTimeout {
		t.Fatalf("deadline must map to timeout, got %v", norm)
	}
	if !errors.Is(norm, context.DeadlineExceeded) {
		t.Fatal("cause must survive normalization")
	}

	norm = Normalize("x", errors.New("boom"))
	got, ok = AsError(norm)
	if !ok || got.Kind != KindAPI {
		t.Fatalf("generic error must map to api, got %v", norm)
	}
}
