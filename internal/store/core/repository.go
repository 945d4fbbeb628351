// Package core declares the persistence contract and domain records.
// Implementations live in sibling packages (memory, pg).
package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidStateTransition is returned when a scheduled post is moved
	// along an edge the lifecycle does not allow.
	ErrInvalidStateTransition = errors.New("store: invalid state transition")

	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("store: duplicate record")
)

// StaleProcessingAge is how long a post may sit in processing before
// ClaimDue hands it out again. A claim older than this belongs to a
// dispatcher that died mid-run.
const StaleProcessingAge = 10 * time.Minute

// Repository is the storage contract for identities, linked accounts and
// scheduled posts.
type Repository interface {
	IdentityRepository
	LinkedAccountRepository
	ScheduleRepository

	Ping(ctx context.Context) error
	Close() error
}

// IdentityRepository manages API callers and their credential hashes.
type IdentityRepository interface {
	CreateIdentity(ctx context.Context, id *Identity) error
	GetIdentity(ctx context.Context, identityID string) (*Identity, error)

	// FindIdentitiesByLookup returns all identities sharing a lookup key.
	// The lookup key narrows candidates; callers must still verify the
	// secret against each candidate's hash.
	FindIdentitiesByLookup(ctx context.Context, lookup string) ([]*Identity, error)

	// ListIdentities returns every identity. Used as the verification
	// fallback for records created before lookup keys existed.
	ListIdentities(ctx context.Context) ([]*Identity, error)

	// RotateIdentityKey replaces the stored hash and lookup key.
	RotateIdentityKey(ctx context.Context, identityID, hash, lookup string) error
}

// LinkedAccountRepository manages platform connections.
type LinkedAccountRepository interface {
	// UpsertLinkedAccount inserts the account, or refreshes tokens and
	// profile fields when (identity, platform, external account) already
	// exists. The stored record's ID is written back to acct.
	UpsertLinkedAccount(ctx context.Context, acct *LinkedAccount) error

	GetLinkedAccount(ctx context.Context, accountID string) (*LinkedAccount, error)

	// FindLinkedAccounts returns the identity's accounts on one platform,
	// optionally narrowed to an external account id.
	FindLinkedAccounts(ctx context.Context, identityID, platform, externalAccountID string) ([]*LinkedAccount, error)

	ListLinkedAccounts(ctx context.Context, identityID string) ([]*LinkedAccount, error)

	// UpdateLinkedAccountTokens swaps the encrypted grant after a refresh.
	UpdateLinkedAccountTokens(ctx context.Context, accountID, accessEnc, refreshEnc string, expiresAt time.Time) error

	RemoveLinkedAccount(ctx context.Context, identityID, accountID string) error
}

// ScheduleRepository manages deferred publishes.
type ScheduleRepository interface {
	CreateScheduledPost(ctx context.Context, post *ScheduledPost) error
	GetScheduledPost(ctx context.Context, identityID, postID string) (*ScheduledPost, error)
	ListScheduledPosts(ctx context.Context, identityID string, statuses []string) ([]*ScheduledPost, error)

	// ClaimDue atomically flips up to limit pending posts whose time has
	// arrived into processing and returns them. Posts stuck in processing
	// longer than StaleProcessingAge are claimed again. Two concurrent
	// dispatchers never claim the same post.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*ScheduledPost, error)

	// CompleteScheduledPost records the outcome of a processing run.
	CompleteScheduledPost(ctx context.Context, postID, status string, results []TargetResult, errorSummary string) error

	// CancelScheduledPost cancels a pending post. Any other current status
	// yields ErrInvalidStateTransition.
	CancelScheduledPost(ctx context.Context, identityID, postID string) error
}
