package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DartonStaker/appapost/internal/dispatch"
	"github.com/DartonStaker/appapost/internal/policy"
)

// AttemptStore persists publish outcomes. The table carries a unique
// constraint on (post_id, platform), so reissuing a post replaces the
// earlier attempt record instead of duplicating it.
type AttemptStore struct {
	db *sql.DB
}

func NewAttemptStore(db *sql.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

// Record upserts the outcome of one attempt.
func (s *AttemptStore) Record(ctx context.Context, attempt dispatch.PostAttempt) error {
	id := attempt.ID
	if id == "" {
		id = uuid.New().String()
	}
	var postedAt interface{}
	if attempt.PostedAt != nil {
		postedAt = *attempt.PostedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_attempts (id, post_id, platform, status, post_url, error, scheduled_at, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (post_id, platform) DO UPDATE SET
			status = EXCLUDED.status,
			post_url = EXCLUDED.post_url,
			error = EXCLUDED.error,
			scheduled_at = EXCLUDED.scheduled_at,
			posted_at = EXCLUDED.posted_at`,
		id, attempt.PostID, string(attempt.Platform), string(attempt.Status),
		nullable(attempt.PostURL), nullable(attempt.Error), attempt.ScheduledAt, postedAt)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// LastPostedAt returns the most recent successful post time for an
// account's platform, used for advisory rate spacing.
func (s *AttemptStore) LastPostedAt(ctx context.Context, userID string, platform policy.Platform) (*time.Time, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pa.posted_at
		FROM post_attempts pa
		JOIN posts p ON p.id = pa.post_id
		WHERE p.user_id = $1 AND pa.platform = $2 AND pa.status = 'posted' AND pa.posted_at IS NOT NULL
		ORDER BY pa.posted_at DESC
		LIMIT 1`, userID, string(platform))

	var ts time.Time
	err := row.Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last post: %w", err)
	}
	return &ts, nil
}
