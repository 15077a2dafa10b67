package dispatch

import (
	"context"

	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/logging"
)

// FallbackAdapter tries a primary adapter and, when it fails, the
// platform-native secondary. Both adapters must serve the same
// platform. The secondary's error wins when both fail.
type FallbackAdapter struct {
	primary   Adapter
	secondary Adapter
	logger    logging.Logger
}

func NewFallbackAdapter(primary, secondary Adapter, logger logging.Logger) *FallbackAdapter {
	return &FallbackAdapter{primary: primary, secondary: secondary, logger: logger}
}

func (a *FallbackAdapter) Platform() policy.Platform { return a.primary.Platform() }

func (a *FallbackAdapter) Publish(ctx context.Context, cred Credential, text string, mediaURLs []string, extras map[string]string) (string, error) {
	postURL, err := a.primary.Publish(ctx, cred, text, mediaURLs, extras)
	if err == nil {
		return postURL, nil
	}
	if a.logger != nil {
		a.logger.WithError(err).WithField("platform", a.Platform()).Warn("Primary adapter failed, trying fallback")
	}
	return a.secondary.Publish(ctx, cred, text, mediaURLs, extras)
}
