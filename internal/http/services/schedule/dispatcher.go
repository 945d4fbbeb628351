package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/http/services/publish"
	"github.com/highshift/highshift/internal/metrics"
	"github.com/highshift/highshift/internal/observability/logger"
	"github.com/highshift/highshift/internal/store/core"
)

// DefaultInterval is the poll period between dispatcher sweeps.
const DefaultInterval = 60 * time.Second

const defaultClaimLimit = 50

type DispatcherDeps struct {
	Repo       core.ScheduleRepository
	Publisher  publish.Service
	Interval   time.Duration
	ClaimLimit int
	Now        func() time.Time
}

// Dispatcher claims due posts and publishes them. Any number of
// dispatchers can run against the same store; ClaimDue hands each post
// to exactly one of them.
type Dispatcher struct {
	d DispatcherDeps
}

func NewDispatcher(d DispatcherDeps) *Dispatcher {
	if d.Interval <= 0 {
		d.Interval = DefaultInterval
	}
	if d.ClaimLimit <= 0 {
		d.ClaimLimit = defaultClaimLimit
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Dispatcher{d: d}
}

// Run polls until the context is canceled.
func (dp *Dispatcher) Run(ctx context.Context) {
	log := logger.From(ctx).With(logger.Layer("dispatcher"))
	log.Info("dispatcher started", logger.Duration(dp.d.Interval))

	ticker := time.NewTicker(dp.d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := dp.RunOnce(ctx); err != nil {
				log.Error("dispatcher sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep and reports how many posts it
// processed. The cron endpoint calls this directly.
func (dp *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	metrics.DispatcherRuns.Inc()

	posts, err := dp.d.Repo.ClaimDue(ctx, dp.d.Now(), dp.d.ClaimLimit)
	if err != nil {
		return 0, err
	}
	metrics.DispatcherClaimed.Add(float64(len(posts)))

	for _, post := range posts {
		dp.process(ctx, post)
	}
	return len(posts), nil
}

func (dp *Dispatcher) process(ctx context.Context, post *core.ScheduledPost) {
	log := logger.From(ctx).With(
		logger.Layer("dispatcher"),
		logger.ScheduleID(post.ID),
		logger.IdentityID(post.IdentityID),
	)

	// A post re-entering after a crash keeps the targets that already
	// succeeded; only the rest are retried.
	done := make(map[string]core.TargetResult)
	for _, res := range post.Results {
		if res.Status == publish.StatusOK {
			done[res.Target] = res
		}
	}

	var pending []core.Target
	for _, t := range post.Targets {
		if _, ok := done[t.Key()]; !ok {
			pending = append(pending, t)
		}
	}

	outcomes := make(map[string]publish.Outcome, len(pending))
	if len(pending) > 0 {
		var err error
		outcomes, err = dp.d.Publisher.Publish(ctx, post.IdentityID, publish.Request{
			Content:   post.Content,
			MediaURLs: post.MediaURLs,
			Targets:   pending,
		})
		if err != nil {
			// request-level rejection: every pending target failed the same way
			app := errors.From(err)
			outcomes = make(map[string]publish.Outcome, len(pending))
			for _, t := range pending {
				outcomes[t.Key()] = publish.Outcome{
					Status:       publish.StatusError,
					ErrorCode:    app.Code,
					ErrorMessage: app.Message,
				}
			}
		}
	}

	results := publish.Results(outcomes)
	for _, res := range done {
		results = append(results, res)
	}

	merged := make(map[string]publish.Outcome, len(results))
	for _, res := range results {
		merged[res.Target] = publish.Outcome{Status: res.Status}
	}
	status := publish.Aggregate(merged)

	var summary string
	if status == core.StatusFailed {
		summary = firstError(outcomes)
	}

	if err := dp.d.Repo.CompleteScheduledPost(ctx, post.ID, status, results, summary); err != nil {
		log.Error("failed to record outcome", zap.Error(err))
		return
	}
	log.Info("scheduled post processed",
		logger.String("status", status),
		logger.Count(len(results)),
	)
}

func firstError(outcomes map[string]publish.Outcome) string {
	for _, out := range outcomes {
		if out.Status == publish.StatusError && out.ErrorMessage != "" {
			return out.ErrorMessage
		}
	}
	return "all targets failed"
}
