// Package publish fans one piece of content out to linked accounts.
// Targets are isolated: a failing target records its own error and
// never disturbs the others.
package publish

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/metrics"
	"github.com/highshift/highshift/internal/observability/logger"
	"github.com/highshift/highshift/internal/platform"
	"github.com/highshift/highshift/internal/store/core"
	"github.com/highshift/highshift/internal/vault"
)

const (
	// MaxContentLen bounds the shared content field across platforms.
	MaxContentLen = 2800

	// MaxMediaItems bounds attachments per request.
	MaxMediaItems = 4

	// DefaultTimeout bounds a single provider publish call.
	DefaultTimeout = 30 * time.Second
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is one fan-out publish.
type Request struct {
	Content   string
	MediaURLs []string
	Targets   []core.Target
}

// Outcome is the per-target result.
type Outcome struct {
	Status       string `json:"status"`
	PostID       string `json:"post_id,omitempty"`
	PostURL      string `json:"post_url,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type Service interface {
	// Publish fans out to every target and returns one outcome per
	// target key. The error return covers request-level failures only.
	Publish(ctx context.Context, identityID string, req Request) (map[string]Outcome, error)
}

type Deps struct {
	Repo        core.LinkedAccountRepository
	Registry    *platform.Registry
	Vault       *vault.Vault
	Timeout     time.Duration
	Concurrency int // simultaneous provider calls; default 1 (sequential)
}

func NewService(d Deps) Service {
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}
	if d.Concurrency <= 0 {
		d.Concurrency = 1
	}
	return &service{d: d}
}

type service struct{ d Deps }

func (s *service) Publish(ctx context.Context, identityID string, req Request) (map[string]Outcome, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	targets := dedupe(req.Targets)
	outcomes := make(map[string]Outcome, len(targets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.d.Concurrency)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			out := s.publishOne(gctx, identityID, target, req)
			mu.Lock()
			outcomes[target.Key()] = out
			mu.Unlock()
			metrics.PublishTotal.WithLabelValues(strings.ToLower(target.Platform), out.Status).Inc()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return outcomes, nil
}

func validate(req Request) error {
	if len(req.Targets) == 0 {
		return errors.ErrValidation.WithDetail("at least one target is required")
	}
	if req.Content == "" && len(req.MediaURLs) == 0 {
		return errors.ErrValidation.WithDetail("content or media is required")
	}
	if len(req.Content) > MaxContentLen {
		return errors.ErrValidation.WithDetail("content exceeds maximum length")
	}
	if len(req.MediaURLs) > MaxMediaItems {
		return errors.ErrValidation.WithDetail("too many media items")
	}
	return nil
}

// dedupe collapses exact duplicate targets while keeping order.
func dedupe(targets []core.Target) []core.Target {
	seen := make(map[string]struct{}, len(targets))
	out := make([]core.Target, 0, len(targets))
	for _, t := range targets {
		t.Platform = strings.ToLower(t.Platform)
		if _, ok := seen[t.Key()]; ok {
			continue
		}
		seen[t.Key()] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *service) publishOne(ctx context.Context, identityID string, target core.Target, req Request) Outcome {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("publish"),
		logger.IdentityID(identityID),
		logger.Platform(target.Platform),
	)

	adapter, err := s.d.Registry.Get(target.Platform)
	if err != nil {
		return failure(errors.ErrUnsupportedPlatform.WithDetail(target.Platform))
	}

	acct, appErr := s.resolveAccount(ctx, identityID, target)
	if appErr != nil {
		return failure(appErr)
	}

	caps := adapter.Capabilities()
	if out, bad := checkContent(caps, req); bad {
		return out
	}

	token, err := s.d.Vault.AccessToken(ctx, acct.ID)
	if err != nil {
		log.Warn("token unavailable", zap.Error(err))
		return failure(errors.MapDomain(err))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.d.Timeout)
	defer cancel()

	// checkContent already rejected media for platforms without image
	// support, so the text path never swallows attachments.
	var receipt *platform.Receipt
	if len(req.MediaURLs) > 0 {
		receipt, err = adapter.PublishImage(callCtx, token, acct.ExternalAccountID, req.Content, req.MediaURLs)
	} else {
		receipt, err = adapter.PublishText(callCtx, token, acct.ExternalAccountID, req.Content)
	}
	if err != nil {
		err = platform.Normalize(target.Platform, err)
		log.Warn("publish failed", zap.Error(err))
		return failure(errors.MapDomain(err))
	}

	log.Info("published", logger.String("post_id", receipt.PostID))
	return Outcome{Status: StatusOK, PostID: receipt.PostID, PostURL: receipt.PostURL}
}

// resolveAccount maps a target to exactly one linked account.
func (s *service) resolveAccount(ctx context.Context, identityID string, target core.Target) (*core.LinkedAccount, *errors.AppError) {
	accounts, err := s.d.Repo.FindLinkedAccounts(ctx, identityID, target.Platform, target.ExternalAccountID)
	if err != nil {
		return nil, errors.From(err)
	}
	switch len(accounts) {
	case 1:
		return accounts[0], nil
	case 0:
		if target.ExternalAccountID != "" && s.accountOnOtherPlatform(ctx, identityID, target) {
			return nil, errors.ErrPlatformMismatch.WithDetail(target.Key())
		}
		return nil, errors.ErrLinkedAccountNotFound.WithDetail(target.Key())
	default:
		// bare provider with several accounts: the caller must pick one
		return nil, errors.ErrValidation.WithDetail("multiple accounts linked for " + target.Platform + ", specify an account id")
	}
}

func (s *service) accountOnOtherPlatform(ctx context.Context, identityID string, target core.Target) bool {
	all, err := s.d.Repo.ListLinkedAccounts(ctx, identityID)
	if err != nil {
		return false
	}
	for _, acct := range all {
		if acct.ExternalAccountID == target.ExternalAccountID && !strings.EqualFold(acct.Platform, target.Platform) {
			return true
		}
	}
	return false
}

// checkContent enforces the platform's capability constraints.
func checkContent(caps platform.Capabilities, req Request) (Outcome, bool) {
	if caps.RequiresMedia && len(req.MediaURLs) == 0 {
		return failure(errors.ErrValidation.WithDetail("platform requires media")), true
	}
	if len(req.MediaURLs) == 0 && !caps.PublishText {
		return failure(errors.ErrNotImplemented.WithDetail("text publishing")), true
	}
	if len(req.MediaURLs) > 0 && !caps.PublishImage {
		return failure(errors.ErrValidation.WithDetail("platform does not support media")), true
	}
	if caps.MaxTextLen > 0 && len([]rune(req.Content)) > caps.MaxTextLen {
		return failure(errors.ErrValidation.WithDetail("content exceeds platform limit")), true
	}
	return Outcome{}, false
}

func failure(err error) Outcome {
	app := errors.From(err)
	msg := app.Message
	if app.Detail != "" {
		msg = app.Message + ": " + app.Detail
	}
	return Outcome{Status: StatusError, ErrorCode: app.Code, ErrorMessage: msg}
}

// Aggregate folds per-target outcomes into an overall status.
func Aggregate(outcomes map[string]Outcome) string {
	ok, failed := 0, 0
	for _, out := range outcomes {
		if out.Status == StatusOK {
			ok++
		} else {
			failed++
		}
	}
	switch {
	case failed == 0:
		return core.StatusPublished
	case ok == 0:
		return core.StatusFailed
	default:
		return core.StatusPartial
	}
}

// Results converts outcomes to the storable per-target form.
func Results(outcomes map[string]Outcome) []core.TargetResult {
	out := make([]core.TargetResult, 0, len(outcomes))
	for key, o := range outcomes {
		out = append(out, core.TargetResult{
			Target:       key,
			Status:       o.Status,
			PostID:       o.PostID,
			PostURL:      o.PostURL,
			ErrorCode:    o.ErrorCode,
			ErrorMessage: o.ErrorMessage,
		})
	}
	return out
}
