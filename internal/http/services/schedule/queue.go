package schedule

import (
	"context"
	"time"
)

// TriggerQueue hints an external scheduler about due times. It is an
// optimization only: the dispatcher's poll loop is the source of truth,
// so a queue that loses triggers costs latency, never correctness.
type TriggerQueue interface {
	// Enqueue registers a wake-up for the post and returns a handle.
	Enqueue(ctx context.Context, postID string, at time.Time) (string, error)

	// CancelTrigger withdraws the wake-up. Best effort.
	CancelTrigger(ctx context.Context, postID string)
}

// NoopQueue relies entirely on the poll loop.
type NoopQueue struct{}

func (NoopQueue) Enqueue(ctx context.Context, postID string, at time.Time) (string, error) {
	return "", nil
}

func (NoopQueue) CancelTrigger(ctx context.Context, postID string) {}
