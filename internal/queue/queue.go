package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/DartonStaker/appapost/internal/policy"
)

// Job is one deferred publish. Attempts counts executions so far.
type Job struct {
	ID        string          `json:"id"`
	PostID    string          `json:"post_id"`
	VariantID string          `json:"variant_id"`
	Platform  policy.Platform `json:"platform"`
	UserID    string          `json:"user_id"`
	NotBefore time.Time       `json:"not_before"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
}

// NewJob creates a job with a fresh id.
func NewJob(userID, postID, variantID string, platform policy.Platform, notBefore time.Time) Job {
	return Job{
		ID:        uuid.New().String(),
		PostID:    postID,
		VariantID: variantID,
		Platform:  platform,
		UserID:    userID,
		NotBefore: notBefore,
	}
}

// Store holds deferred jobs ordered by their not-before time.
// DequeueDue claims due jobs: a claimed job is gone from the store and
// must be re-enqueued explicitly if it needs another attempt, which is
// how at-least-once delivery falls out.
type Store interface {
	Enqueue(ctx context.Context, job Job) error
	DequeueDue(ctx context.Context, now time.Time, limit int) ([]Job, error)
	Len(ctx context.Context) (int, error)
}
