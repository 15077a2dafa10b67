package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/logging"
)

const defaultXAPIURL = "https://api.x.com/2"

// XAdapter posts through the native X v2 API.
type XAdapter struct {
	poster *httpPoster
	apiURL string
}

func NewXAdapter(logger logging.Logger) *XAdapter {
	return &XAdapter{
		poster: newHTTPPoster("x", logger),
		apiURL: defaultXAPIURL,
	}
}

func (a *XAdapter) Platform() policy.Platform { return policy.X }

func (a *XAdapter) Publish(ctx context.Context, cred Credential, text string, mediaURLs []string, extras map[string]string) (string, error) {
	body := map[string]interface{}{"text": text}
	if ids, ok := extras["media_ids"]; ok && ids != "" {
		body["media"] = map[string]interface{}{"media_ids": []string{ids}}
	}

	var reply struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + cred.AccessToken}
	if err := a.poster.postJSON(ctx, a.apiURL+"/tweets", headers, body, &reply); err != nil {
		return "", err
	}
	if reply.Data.ID == "" {
		return "", errors.New("x: reply missing tweet id")
	}
	return fmt.Sprintf("https://x.com/i/web/status/%s", reply.Data.ID), nil
}
