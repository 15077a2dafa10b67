package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider talks to a local Ollama daemon over its native chat
// API. Unlike the OpenAI-compatible shim, the native endpoint accepts
// raw base64 images, which the vision models need.
type OllamaProvider struct {
	client      *http.Client
	apiURL      string
	model       string
	temperature float64
	maxAttempts int
	timeout     time.Duration
}

func NewOllamaProvider(cfg Config) *OllamaProvider {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "qwen3-vl:2b"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		client:      &http.Client{Timeout: timeout},
		apiURL:      apiURL,
		model:       model,
		temperature: cfg.Temperature,
		maxAttempts: cfg.MaxAttempts,
		timeout:     timeout,
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	return doWithRetry(ctx, p.maxAttempts, defaultBaseDelay, p.timeout, func(attemptCtx context.Context) (string, error) {
		return p.complete(attemptCtx, messages)
	})
}

func (p *OllamaProvider) complete(ctx context.Context, messages []Message) (string, error) {
	reqBody := ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
	}
	if p.temperature != 0 {
		reqBody.Options = &ollamaOptions{Temperature: p.temperature}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Provider: "ollama", Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if result.Message.Content == "" {
		return "", errors.New("ollama: empty completion")
	}
	return result.Message.Content, nil
}

// Status probes the daemon's tag listing and reports whether the
// configured model is present.
func (p *OllamaProvider) Status(ctx context.Context) (OllamaStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/api/tags", nil)
	if err != nil {
		return OllamaStatus{}, fmt.Errorf("ollama: create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return OllamaStatus{}, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return OllamaStatus{}, &StatusError{Provider: "ollama", Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return OllamaStatus{}, fmt.Errorf("ollama: decode tags: %w", err)
	}

	status := OllamaStatus{Running: true, Model: p.model}
	for _, m := range tags.Models {
		status.Models = append(status.Models, m.Name)
		if m.Name == p.model || strings.HasPrefix(m.Name, p.model+":") {
			status.ModelAvailable = true
		}
	}
	return status, nil
}

// Ping reports reachability of the daemon, for health checks.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	_, err := p.Status(ctx)
	return err
}

// OllamaStatus describes the local daemon and its loaded models.
type OllamaStatus struct {
	Running        bool     `json:"running"`
	Model          string   `json:"model"`
	ModelAvailable bool     `json:"model_available"`
	Models         []string `json:"models,omitempty"`
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
