package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/logging"
)

const defaultGraphAPIURL = "https://graph.facebook.com/v21.0"

// InstagramAdapter publishes through the Instagram Graph API. Posting
// is a two-step dance: create a media container, then publish it.
type InstagramAdapter struct {
	poster *httpPoster
	apiURL string
}

func NewInstagramAdapter(logger logging.Logger) *InstagramAdapter {
	return &InstagramAdapter{
		poster: newHTTPPoster("instagram", logger),
		apiURL: defaultGraphAPIURL,
	}
}

func (a *InstagramAdapter) Platform() policy.Platform { return policy.Instagram }

func (a *InstagramAdapter) Publish(ctx context.Context, cred Credential, text string, mediaURLs []string, extras map[string]string) (string, error) {
	if cred.PlatformAccountID == "" {
		return "", errors.New("instagram: missing business account id")
	}
	if len(mediaURLs) == 0 {
		return "", errors.New("instagram: at least one image is required")
	}

	container := map[string]interface{}{
		"image_url":    mediaURLs[0],
		"caption":      text,
		"access_token": cred.AccessToken,
	}
	var created struct {
		ID string `json:"id"`
	}
	mediaEndpoint := fmt.Sprintf("%s/%s/media", a.apiURL, cred.PlatformAccountID)
	if err := a.poster.postJSON(ctx, mediaEndpoint, nil, container, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.New("instagram: container creation returned no id")
	}

	publish := map[string]interface{}{
		"creation_id":  created.ID,
		"access_token": cred.AccessToken,
	}
	var published struct {
		ID string `json:"id"`
	}
	publishEndpoint := fmt.Sprintf("%s/%s/media_publish", a.apiURL, cred.PlatformAccountID)
	if err := a.poster.postJSON(ctx, publishEndpoint, nil, publish, &published); err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", errors.New("instagram: publish returned no media id")
	}

	// Permalink lookup is best-effort; the media id is enough to build
	// a stable fallback reference.
	var media struct {
		Permalink string `json:"permalink"`
	}
	lookup := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s", a.apiURL, published.ID, url.QueryEscape(cred.AccessToken))
	if err := a.poster.getJSON(ctx, lookup, nil, &media); err == nil && media.Permalink != "" {
		return media.Permalink, nil
	}
	return fmt.Sprintf("https://www.instagram.com/media/%s", published.ID), nil
}
