// Package memory provides an in-process Repository for development and
// tests. All operations are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/highshift/highshift/internal/store/core"
)

type Store struct {
	mu         sync.RWMutex
	identities map[string]*core.Identity
	accounts   map[string]*core.LinkedAccount
	posts      map[string]*core.ScheduledPost
}

func New() *Store {
	return &Store{
		identities: make(map[string]*core.Identity),
		accounts:   make(map[string]*core.LinkedAccount),
		posts:      make(map[string]*core.ScheduledPost),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

// --- identities ---

func (s *Store) CreateIdentity(ctx context.Context, id *core.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.ID == "" {
		id.ID = uuid.NewString()
	}
	if _, ok := s.identities[id.ID]; ok {
		return core.ErrDuplicate
	}
	now := time.Now().UTC()
	id.CreatedAt = now
	id.UpdatedAt = now
	s.identities[id.ID] = cloneIdentity(id)
	return nil
}

func (s *Store) GetIdentity(ctx context.Context, identityID string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.identities[identityID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneIdentity(id), nil
}

func (s *Store) FindIdentitiesByLookup(ctx context.Context, lookup string) ([]*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Identity
	for _, id := range s.identities {
		if id.APIKeyLookup != "" && id.APIKeyLookup == lookup {
			out = append(out, cloneIdentity(id))
		}
	}
	return out, nil
}

func (s *Store) ListIdentities(ctx context.Context) ([]*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Identity, 0, len(s.identities))
	for _, id := range s.identities {
		out = append(out, cloneIdentity(id))
	}
	return out, nil
}

func (s *Store) RotateIdentityKey(ctx context.Context, identityID, hash, lookup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.identities[identityID]
	if !ok {
		return core.ErrNotFound
	}
	id.APIKeyHash = hash
	id.APIKeyLookup = lookup
	id.UpdatedAt = time.Now().UTC()
	return nil
}

// --- linked accounts ---

func (s *Store) UpsertLinkedAccount(ctx context.Context, acct *core.LinkedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, existing := range s.accounts {
		if existing.IdentityID == acct.IdentityID &&
			existing.Platform == acct.Platform &&
			existing.ExternalAccountID == acct.ExternalAccountID {
			existing.Username = acct.Username
			existing.DisplayName = acct.DisplayName
			existing.AccessTokenEnc = acct.AccessTokenEnc
			existing.RefreshTokenEnc = acct.RefreshTokenEnc
			existing.TokenExpiresAt = acct.TokenExpiresAt
			existing.Scopes = append([]string(nil), acct.Scopes...)
			existing.RawProfile = append([]byte(nil), acct.RawProfile...)
			existing.UpdatedAt = now
			acct.ID = existing.ID
			acct.CreatedAt = existing.CreatedAt
			acct.UpdatedAt = now
			return nil
		}
	}

	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	acct.CreatedAt = now
	acct.UpdatedAt = now
	s.accounts[acct.ID] = cloneAccount(acct)
	return nil
}

func (s *Store) GetLinkedAccount(ctx context.Context, accountID string) (*core.LinkedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneAccount(acct), nil
}

func (s *Store) FindLinkedAccounts(ctx context.Context, identityID, platform, externalAccountID string) ([]*core.LinkedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.LinkedAccount
	for _, acct := range s.accounts {
		if acct.IdentityID != identityID || !strings.EqualFold(acct.Platform, platform) {
			continue
		}
		if externalAccountID != "" && acct.ExternalAccountID != externalAccountID {
			continue
		}
		out = append(out, cloneAccount(acct))
	}
	sortAccounts(out)
	return out, nil
}

func (s *Store) ListLinkedAccounts(ctx context.Context, identityID string) ([]*core.LinkedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.LinkedAccount
	for _, acct := range s.accounts {
		if acct.IdentityID == identityID {
			out = append(out, cloneAccount(acct))
		}
	}
	sortAccounts(out)
	return out, nil
}

func (s *Store) UpdateLinkedAccountTokens(ctx context.Context, accountID, accessEnc, refreshEnc string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return core.ErrNotFound
	}
	acct.AccessTokenEnc = accessEnc
	acct.RefreshTokenEnc = refreshEnc
	acct.TokenExpiresAt = expiresAt
	acct.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) RemoveLinkedAccount(ctx context.Context, identityID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok || acct.IdentityID != identityID {
		return core.ErrNotFound
	}
	delete(s.accounts, accountID)
	return nil
}

// --- scheduled posts ---

func (s *Store) CreateScheduledPost(ctx context.Context, post *core.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if _, ok := s.posts[post.ID]; ok {
		return core.ErrDuplicate
	}
	now := time.Now().UTC()
	post.Status = core.StatusPending
	post.CreatedAt = now
	post.UpdatedAt = now
	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *Store) GetScheduledPost(ctx context.Context, identityID, postID string) (*core.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[postID]
	if !ok || post.IdentityID != identityID {
		return nil, core.ErrNotFound
	}
	return clonePost(post), nil
}

func (s *Store) ListScheduledPosts(ctx context.Context, identityID string, statuses []string) ([]*core.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.ScheduledPost
	for _, post := range s.posts {
		if post.IdentityID != identityID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, post.Status) {
			continue
		}
		out = append(out, clonePost(post))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *Store) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*core.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := now.Add(-core.StaleProcessingAge)
	var due []*core.ScheduledPost
	for _, post := range s.posts {
		switch post.Status {
		case core.StatusPending:
			if !post.ScheduledAt.After(now) {
				due = append(due, post)
			}
		case core.StatusProcessing:
			if post.UpdatedAt.Before(stale) {
				due = append(due, post)
			}
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]*core.ScheduledPost, 0, len(due))
	for _, post := range due {
		post.Status = core.StatusProcessing
		post.UpdatedAt = now.UTC()
		out = append(out, clonePost(post))
	}
	return out, nil
}

func (s *Store) CompleteScheduledPost(ctx context.Context, postID, status string, results []core.TargetResult, errorSummary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return core.ErrNotFound
	}
	if post.Status != core.StatusProcessing {
		return core.ErrInvalidStateTransition
	}
	post.Status = status
	post.Results = append([]core.TargetResult(nil), results...)
	post.ErrorSummary = errorSummary
	post.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) CancelScheduledPost(ctx context.Context, identityID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok || post.IdentityID != identityID {
		return core.ErrNotFound
	}
	if post.Status != core.StatusPending {
		return core.ErrInvalidStateTransition
	}
	post.Status = core.StatusCanceled
	post.UpdatedAt = time.Now().UTC()
	return nil
}

// --- helpers ---

func containsStatus(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func sortAccounts(accts []*core.LinkedAccount) {
	sort.Slice(accts, func(i, j int) bool {
		if accts[i].Platform != accts[j].Platform {
			return accts[i].Platform < accts[j].Platform
		}
		return accts[i].CreatedAt.Before(accts[j].CreatedAt)
	})
}

func cloneIdentity(id *core.Identity) *core.Identity {
	cp := *id
	return &cp
}

func cloneAccount(a *core.LinkedAccount) *core.LinkedAccount {
	cp := *a
	cp.Scopes = append([]string(nil), a.Scopes...)
	cp.RawProfile = append([]byte(nil), a.RawProfile...)
	return &cp
}

func clonePost(p *core.ScheduledPost) *core.ScheduledPost {
	cp := *p
	cp.MediaURLs = append([]string(nil), p.MediaURLs...)
	cp.Targets = append([]core.Target(nil), p.Targets...)
	cp.Results = append([]core.TargetResult(nil), p.Results...)
	return &cp
}
