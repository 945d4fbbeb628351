package pg

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/highshift/highshift/internal/store/core"
)

const postCols = `id, identity_id, content, media_urls, targets, scheduled_at, status,
	results, error_summary, created_at, updated_at`

func (s *Store) CreateScheduledPost(ctx context.Context, post *core.ScheduledPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.Status = core.StatusPending

	targets, err := json.Marshal(post.Targets)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO scheduled_posts (id, identity_id, content, media_urls, targets,
			scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`
	err = s.pool.QueryRow(ctx, q,
		post.ID, post.IdentityID, post.Content, post.MediaURLs, targets,
		post.ScheduledAt.UTC(), post.Status,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetScheduledPost(ctx context.Context, identityID, postID string) (*core.ScheduledPost, error) {
	const q = `SELECT ` + postCols + `
		FROM scheduled_posts WHERE id = $1 AND identity_id = $2`
	return scanPost(s.pool.QueryRow(ctx, q, postID, identityID))
}

func (s *Store) ListScheduledPosts(ctx context.Context, identityID string, statuses []string) ([]*core.ScheduledPost, error) {
	q := `SELECT ` + postCols + ` FROM scheduled_posts WHERE identity_id = $1`
	args := []any{identityID}
	if len(statuses) > 0 {
		q += ` AND status = ANY($2)`
		args = append(args, statuses)
	}
	q += ` ORDER BY scheduled_at`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// ClaimDue uses UPDATE ... SKIP LOCKED so concurrent dispatchers never
// double-claim a post. Processing rows older than the staleness cutoff
// are claimed again; their dispatcher died mid-run.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*core.ScheduledPost, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		UPDATE scheduled_posts SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM scheduled_posts
			WHERE (status = 'pending' AND scheduled_at <= $1)
			   OR (status = 'processing' AND updated_at <= $2)
			ORDER BY scheduled_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + postCols
	rows, err := s.pool.Query(ctx, q, now.UTC(), now.UTC().Add(-core.StaleProcessingAge), limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (s *Store) CompleteScheduledPost(ctx context.Context, postID, status string, results []core.TargetResult, errorSummary string) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	const q = `
		UPDATE scheduled_posts
		SET status = $2, results = $3, error_summary = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`
	ct, err := s.pool.Exec(ctx, q, postID, status, data, errorSummary)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := s.getPostByID(ctx, postID); err != nil {
			return err
		}
		return core.ErrInvalidStateTransition
	}
	return nil
}

func (s *Store) CancelScheduledPost(ctx context.Context, identityID, postID string) error {
	const q = `
		UPDATE scheduled_posts SET status = 'canceled', updated_at = NOW()
		WHERE id = $1 AND identity_id = $2 AND status = 'pending'`
	ct, err := s.pool.Exec(ctx, q, postID, identityID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := s.GetScheduledPost(ctx, identityID, postID); err != nil {
			return err
		}
		return core.ErrInvalidStateTransition
	}
	return nil
}

func (s *Store) getPostByID(ctx context.Context, postID string) (*core.ScheduledPost, error) {
	const q = `SELECT ` + postCols + ` FROM scheduled_posts WHERE id = $1`
	return scanPost(s.pool.QueryRow(ctx, q, postID))
}

func scanPost(row pgx.Row) (*core.ScheduledPost, error) {
	var (
		p       core.ScheduledPost
		targets []byte
		results []byte
		summary *string
		content *string
	)
	err := row.Scan(&p.ID, &p.IdentityID, &content, &p.MediaURLs, &targets, &p.ScheduledAt,
		&p.Status, &results, &summary, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if content != nil {
		p.Content = *content
	}
	if summary != nil {
		p.ErrorSummary = *summary
	}
	if len(targets) > 0 {
		if err := json.Unmarshal(targets, &p.Targets); err != nil {
			return nil, err
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &p.Results); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func collectPosts(rows pgx.Rows) ([]*core.ScheduledPost, error) {
	var out []*core.ScheduledPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}
