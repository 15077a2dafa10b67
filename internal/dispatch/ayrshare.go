package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/logging"
)

const defaultAyrshareAPIURL = "https://api.ayrshare.com/api"

// AyrshareAdapter publishes through the Ayrshare unified posting API.
// One adapter instance serves one platform; the per-user profile key
// travels in the credential.
type AyrshareAdapter struct {
	poster   *httpPoster
	apiURL   string
	apiKey   string
	platform policy.Platform
}

// NewAyrshareAdapter creates an adapter for one platform backed by
// Ayrshare. apiKey is the tenant-level Ayrshare key.
func NewAyrshareAdapter(platform policy.Platform, apiKey string, logger logging.Logger) *AyrshareAdapter {
	return &AyrshareAdapter{
		poster:   newHTTPPoster("ayrshare-"+string(platform), logger),
		apiURL:   defaultAyrshareAPIURL,
		apiKey:   apiKey,
		platform: platform,
	}
}

func (a *AyrshareAdapter) Platform() policy.Platform { return a.platform }

// ayrshareName maps our platform ids onto Ayrshare's naming.
func ayrshareName(p policy.Platform) string {
	switch p {
	case policy.X:
		return "twitter"
	default:
		return string(p)
	}
}

func (a *AyrshareAdapter) Publish(ctx context.Context, cred Credential, text string, mediaURLs []string, extras map[string]string) (string, error) {
	if a.apiKey == "" {
		return "", errors.New("ayrshare: api key not configured")
	}

	body := map[string]interface{}{
		"post":      text,
		"platforms": []string{ayrshareName(a.platform)},
	}
	if len(mediaURLs) > 0 {
		body["mediaUrls"] = mediaURLs
	}
	if title, ok := extras["pin_title"]; ok && a.platform == policy.Pinterest {
		body["pinterestOptions"] = map[string]string{"title": title}
	}

	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}
	if cred.AccessToken != "" {
		// Profile-scoped posting for multi-user tenants.
		headers["Profile-Key"] = cred.AccessToken
	}

	var reply struct {
		Status  string `json:"status"`
		PostIDs []struct {
			Platform string `json:"platform"`
			PostURL  string `json:"postUrl"`
			Status   string `json:"status"`
		} `json:"postIds"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := a.poster.postJSON(ctx, a.apiURL+"/post", headers, body, &reply); err != nil {
		return "", err
	}

	if !strings.EqualFold(reply.Status, "success") {
		if len(reply.Errors) > 0 && reply.Errors[0].Message != "" {
			return "", errors.New(reply.Errors[0].Message)
		}
		return "", fmt.Errorf("ayrshare: post status %q", reply.Status)
	}
	for _, id := range reply.PostIDs {
		if id.PostURL != "" {
			return id.PostURL, nil
		}
	}
	return "", nil
}
