// Package schedule stores deferred publishes and dispatches them when
// their time arrives.
package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/http/services/publish"
	"github.com/highshift/highshift/internal/observability/logger"
	"github.com/highshift/highshift/internal/store/core"
)

type CreateRequest struct {
	Content     string
	MediaURLs   []string
	Targets     []core.Target
	ScheduledAt time.Time
}

type Service interface {
	Create(ctx context.Context, identityID string, req CreateRequest) (*core.ScheduledPost, error)
	List(ctx context.Context, identityID string, statuses []string) ([]*core.ScheduledPost, error)
	Get(ctx context.Context, identityID, postID string) (*core.ScheduledPost, error)
	Cancel(ctx context.Context, identityID, postID string) error
}

type Deps struct {
	Repo  core.ScheduleRepository
	Queue TriggerQueue
	Now   func() time.Time
}

func NewService(d Deps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Queue == nil {
		d.Queue = NoopQueue{}
	}
	return &service{d: d}
}

type service struct{ d Deps }

func (s *service) Create(ctx context.Context, identityID string, req CreateRequest) (*core.ScheduledPost, error) {
	if len(req.Targets) == 0 {
		return nil, errors.ErrValidation.WithDetail("at least one target is required")
	}
	if req.Content == "" && len(req.MediaURLs) == 0 {
		return nil, errors.ErrValidation.WithDetail("content or media is required")
	}
	if len(req.Content) > publish.MaxContentLen {
		return nil, errors.ErrValidation.WithDetail("content exceeds maximum length")
	}
	if len(req.MediaURLs) > publish.MaxMediaItems {
		return nil, errors.ErrValidation.WithDetail("too many media items")
	}
	if !req.ScheduledAt.After(s.d.Now()) {
		return nil, errors.ErrValidation.WithDetail("scheduled time must be in the future")
	}

	targets := make([]core.Target, len(req.Targets))
	for i, t := range req.Targets {
		t.Platform = strings.ToLower(t.Platform)
		targets[i] = t
	}

	post := &core.ScheduledPost{
		IdentityID:  identityID,
		Content:     req.Content,
		MediaURLs:   req.MediaURLs,
		Targets:     targets,
		ScheduledAt: req.ScheduledAt.UTC(),
	}
	if err := s.d.Repo.CreateScheduledPost(ctx, post); err != nil {
		return nil, err
	}

	if _, err := s.d.Queue.Enqueue(ctx, post.ID, post.ScheduledAt); err != nil {
		// the poller picks the post up anyway
		logger.From(ctx).Warn("trigger enqueue failed",
			logger.Layer("service"),
			logger.ScheduleID(post.ID),
			logger.Err(err),
		)
	}

	logger.From(ctx).Info("post scheduled",
		logger.Layer("service"),
		logger.Component("schedule.create"),
		logger.IdentityID(identityID),
		logger.ScheduleID(post.ID),
	)
	return post, nil
}

func (s *service) List(ctx context.Context, identityID string, statuses []string) ([]*core.ScheduledPost, error) {
	return s.d.Repo.ListScheduledPosts(ctx, identityID, statuses)
}

func (s *service) Get(ctx context.Context, identityID, postID string) (*core.ScheduledPost, error) {
	post, err := s.d.Repo.GetScheduledPost(ctx, identityID, postID)
	if err != nil {
		return nil, errors.MapDomain(err)
	}
	return post, nil
}

func (s *service) Cancel(ctx context.Context, identityID, postID string) error {
	if err := s.d.Repo.CancelScheduledPost(ctx, identityID, postID); err != nil {
		return errors.MapDomain(err)
	}
	s.d.Queue.CancelTrigger(ctx, postID)
	return nil
}
