package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/DartonStaker/appapost/pkg/clients"
	"github.com/DartonStaker/appapost/pkg/logging"
)

// httpPoster is the shared HTTP plumbing for platform adapters. Every
// call goes through a per-platform circuit breaker; there is no retry
// here because retrying a failed publish is the queue's job.
type httpPoster struct {
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

func newHTTPPoster(name string, logger logging.Logger) *httpPoster {
	breaker := clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
		Name:   name,
		Logger: logger,
	})
	return &httpPoster{
		client: &http.Client{Timeout: 30 * time.Second},
		executor: clients.NewHTTPExecutor(clients.HTTPExecutorConfig{
			MaxRetries:     0,
			CircuitBreaker: breaker,
			ShouldRetry:    func(*http.Response, error) bool { return false },
		}),
	}
}

// postJSON sends a JSON body and decodes a JSON reply into out.
// Non-2xx responses come back as errors carrying the platform's own
// message so it can be surfaced verbatim.
func (h *httpPoster) postJSON(ctx context.Context, url string, headers map[string]string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := clients.ExecuteHTTP(ctx, h.executor, func() (*http.Response, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return h.client.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s", platformErrorMessage(resp.StatusCode, raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (h *httpPoster) getJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	resp, err := clients.ExecuteHTTP(ctx, h.executor, func() (*http.Response, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return nil, reqErr
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return h.client.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s", platformErrorMessage(resp.StatusCode, raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// platformErrorMessage extracts a human-readable message from a
// platform error reply, falling back to the raw body.
func platformErrorMessage(status int, raw []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Error.Message != "":
			return envelope.Error.Message
		case envelope.Message != "":
			return envelope.Message
		case envelope.Detail != "":
			return envelope.Detail
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return fmt.Sprintf("platform returned status %d", status)
	}
	return fmt.Sprintf("status %d: %s", status, msg)
}
