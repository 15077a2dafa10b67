package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider speaks the OpenAI chat-completions wire format. It is
// also the base for any OpenAI-compatible endpoint (see GrokProvider).
type OpenAIProvider struct {
	client      *http.Client
	name        string
	apiKey      string
	apiURL      string
	model       string
	temperature float64
	maxAttempts int
	timeout     time.Duration
}

func NewOpenAIProvider(cfg Config) *OpenAIProvider {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIProvider{
		client:      &http.Client{Timeout: timeout},
		name:        "openai",
		apiKey:      cfg.APIKey,
		apiURL:      apiURL,
		model:       model,
		temperature: cfg.Temperature,
		maxAttempts: cfg.MaxAttempts,
		timeout:     timeout,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	return doWithRetry(ctx, p.maxAttempts, defaultBaseDelay, p.timeout, func(attemptCtx context.Context) (string, error) {
		return p.complete(attemptCtx, messages)
	})
}

func (p *OpenAIProvider) complete(ctx context.Context, messages []Message) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%s: api key is required", p.name)
	}

	reqBody := openAIRequest{
		Model:    p.model,
		Messages: make([]openAIMessage, 0, len(messages)),
		Stream:   false,
	}
	if p.temperature != 0 {
		reqBody.Temperature = &p.temperature
	}
	for _, msg := range messages {
		reqBody.Messages = append(reqBody.Messages, toOpenAIMessage(msg))
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Provider: p.name, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%s: empty completion", p.name)
	}
	return result.Choices[0].Message.Content, nil
}

// toOpenAIMessage converts a Message to the OpenAI wire shape. Images
// become image_url content parts with data URIs alongside the text.
func toOpenAIMessage(msg Message) openAIMessage {
	if len(msg.Images) == 0 {
		return openAIMessage{Role: msg.Role, Content: msg.Content}
	}
	parts := []openAIContentPart{{Type: "text", Text: msg.Content}}
	for _, img := range msg.Images {
		url := img
		if !strings.HasPrefix(url, "data:") {
			url = "data:image/jpeg;base64," + url
		}
		parts = append(parts, openAIContentPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: url},
		})
	}
	return openAIMessage{Role: msg.Role, Content: parts}
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Stream      bool            `json:"stream"`
	Temperature *float64        `json:"temperature,omitempty"`
}

// openAIMessage uses an untyped Content: a plain string for text-only
// turns, a part array for multimodal turns.
type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
