package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/DartonStaker/appapost/pkg/config"
)

type Config struct {
	Provider    string
	Model       string
	APIKey      string
	APIURL      string
	Temperature float64
	MaxAttempts int

	// Timeout bounds each individual attempt, not the whole retry
	// loop. Zero means the provider default.
	Timeout time.Duration
}

// LoadOllamaConfig reads the local-model settings. The daemon URL and
// model fall back to the provider defaults when unset.
func LoadOllamaConfig() Config {
	return Config{
		Provider:    "ollama",
		Model:       config.GetEnv("OLLAMA_MODEL", "qwen3-vl:2b"),
		APIURL:      config.GetEnv("OLLAMA_URL", "http://localhost:11434"),
		Temperature: 1.3,
	}
}

// LoadGrokConfig reads the x.ai fallback settings. An empty APIKey
// means the fallback is not configured.
func LoadGrokConfig() Config {
	return Config{
		Provider: "grok",
		Model:    config.GetEnv("GROK_MODEL", "grok-beta"),
		APIKey:   config.GetEnv("GROK_API_KEY", ""),
	}
}

// LoadOpenAIConfig reads the OpenAI fallback settings.
func LoadOpenAIConfig() Config {
	return Config{
		Provider: "openai",
		Model:    config.GetEnv("OPENAI_MODEL", "gpt-4o-mini"),
		APIKey:   config.GetEnv("OPENAI_API_KEY", ""),
	}
}

func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return NewOllamaProvider(cfg), nil
	case "grok":
		return NewGrokProvider(cfg), nil
	case "openai":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
