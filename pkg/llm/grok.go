package llm

import (
	"context"
	"strings"
)

// GrokProvider targets the x.ai API, which is OpenAI wire-compatible.
type GrokProvider struct {
	openai *OpenAIProvider
}

func NewGrokProvider(cfg Config) *GrokProvider {
	cfgCopy := cfg
	if strings.TrimSpace(cfgCopy.APIURL) == "" {
		cfgCopy.APIURL = "https://api.x.ai/v1"
	}
	if cfgCopy.Model == "" {
		cfgCopy.Model = "grok-beta"
	}
	inner := NewOpenAIProvider(cfgCopy)
	inner.name = "grok"
	return &GrokProvider{openai: inner}
}

func (p *GrokProvider) Name() string { return "grok" }

func (p *GrokProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	return p.openai.Complete(ctx, messages)
}
