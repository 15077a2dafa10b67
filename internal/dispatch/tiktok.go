package dispatch

import (
	"context"
	"errors"

	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/logging"
)

const defaultTikTokAPIURL = "https://open-api.tiktok.com"

// TikTokAdapter publishes through the TikTok Content Posting API. The
// caption doubles as the video title, so it is capped at the platform's
// 150-character title limit. TikTok only accepts video posts.
type TikTokAdapter struct {
	poster *httpPoster
	apiURL string
}

func NewTikTokAdapter(logger logging.Logger) *TikTokAdapter {
	return &TikTokAdapter{
		poster: newHTTPPoster("tiktok", logger),
		apiURL: defaultTikTokAPIURL,
	}
}

func (a *TikTokAdapter) Platform() policy.Platform { return policy.TikTok }

func (a *TikTokAdapter) Publish(ctx context.Context, cred Credential, text string, mediaURLs []string, extras map[string]string) (string, error) {
	if len(mediaURLs) == 0 {
		return "", errors.New("tiktok requires a video URL")
	}

	title := text
	if runes := []rune(title); len(runes) > 150 {
		title = string(runes[:150])
	}

	body := map[string]interface{}{
		"post_info": map[string]string{
			"title":         title,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]string{
			"source":    "FILE_UPLOAD",
			"video_url": mediaURLs[0],
		},
	}
	headers := map[string]string{
		"Authorization": "Bearer " + cred.AccessToken,
	}

	var reply struct {
		Data struct {
			ShareID string `json:"share_id"`
		} `json:"data"`
	}
	if err := a.poster.postJSON(ctx, a.apiURL+"/video/upload/", headers, body, &reply); err != nil {
		return "", err
	}

	// Publishing is asynchronous; the share id is all TikTok returns
	// up front.
	if reply.Data.ShareID == "" {
		return "", nil
	}
	return "https://www.tiktok.com/share/video/" + reply.Data.ShareID, nil
}
