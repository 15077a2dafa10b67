package dispatch

import (
	"context"
	"time"

	"github.com/DartonStaker/appapost/internal/ai"
	"github.com/DartonStaker/appapost/internal/policy"
)

// Status is the lifecycle state of a post attempt. An attempt moves
// pending to posted or pending to failed exactly once; a retry is a
// new attempt, not a mutation.
type Status string

const (
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

// Credential is a decrypted token bundle for one linked account. The
// dispatcher only reads it; decryption happens upstream.
type Credential struct {
	AccessToken       string
	RefreshToken      string
	PlatformAccountID string
}

// PostAttempt is one publish request and its outcome.
type PostAttempt struct {
	ID          string            `json:"id"`
	PostID      string            `json:"post_id"`
	Platform    policy.Platform   `json:"platform"`
	Variant     ai.Variant        `json:"variant"`
	Credential  *Credential       `json:"-"`
	Extras      map[string]string `json:"extras,omitempty"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	Status      Status            `json:"status"`
	PostURL     string            `json:"post_url,omitempty"`
	Error       string            `json:"error,omitempty"`
	PostedAt    *time.Time        `json:"posted_at,omitempty"`
}

// Adapter publishes to one platform. Publish returns the public URL
// of the created post.
type Adapter interface {
	Platform() policy.Platform
	Publish(ctx context.Context, cred Credential, text string, mediaURLs []string, extras map[string]string) (string, error)
}
