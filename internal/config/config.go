package config

import (
	"strings"
	"time"

	"github.com/DartonStaker/appapost/pkg/config"
)

// Config stores environment configuration for the appapost service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	OllamaURL   string
	OllamaModel string
	GrokAPIKey  string
	GrokModel   string
	OpenAIKey   string
	OpenAIModel string

	GenerationTimeout time.Duration
	GenerationRetries int
	MaxModelCalls     int
	CacheCapacity     int
	CacheTTL          time.Duration
	MinVariants       int
	BrandVoice        string
	BrandHashtags     []string

	AyrshareAPIKey string
	PublishTimeout time.Duration

	TokenMasterSecret string

	QueuePollInterval time.Duration
	QueueMaxAttempts  int
	QueueBaseBackoff  time.Duration

	KafkaBrokers  []string
	KafkaClientID string
}

// LoadConfig loads the appapost configuration from environment
// variables.
func LoadConfig() Config {
	return Config{
		Port:        config.GetEnv("PORT", "18080"),
		DatabaseURL: config.RequireEnv("DATABASE_URL"),
		RedisURL:    config.GetEnv("REDIS_URL", ""),

		OllamaURL:   config.GetEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: config.GetEnv("OLLAMA_MODEL", "qwen3-vl:2b"),
		GrokAPIKey:  config.GetEnv("GROK_API_KEY", ""),
		GrokModel:   config.GetEnv("GROK_MODEL", "grok-beta"),
		OpenAIKey:   config.GetEnv("OPENAI_API_KEY", ""),
		OpenAIModel: config.GetEnv("OPENAI_MODEL", "gpt-4o-mini"),

		GenerationTimeout: config.GetEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		GenerationRetries: config.GetEnvInt("GENERATION_RETRIES", 3),
		MaxModelCalls:     config.GetEnvInt("MAX_MODEL_CALLS", 5),
		CacheCapacity:     config.GetEnvInt("GENERATION_CACHE_CAPACITY", 20),
		CacheTTL:          config.GetEnvDuration("GENERATION_CACHE_TTL", 0),
		MinVariants:       config.GetEnvInt("MIN_VARIANTS", 3),
		BrandVoice:        config.GetEnv("BRAND_VOICE", ""),
		BrandHashtags:     config.GetEnvStringSlice("BRAND_HASHTAGS"),

		AyrshareAPIKey: config.GetEnv("AYRSHARE_API_KEY", ""),
		PublishTimeout: config.GetEnvDuration("PUBLISH_TIMEOUT", 30*time.Second),

		TokenMasterSecret: config.RequireEnv("TOKEN_MASTER_SECRET"),

		QueuePollInterval: config.GetEnvDuration("QUEUE_POLL_INTERVAL", 5*time.Second),
		QueueMaxAttempts:  config.GetEnvInt("QUEUE_MAX_ATTEMPTS", 3),
		QueueBaseBackoff:  config.GetEnvDuration("QUEUE_BASE_BACKOFF", 30*time.Second),

		KafkaBrokers:  config.GetEnvStringSlice("KAFKA_BROKERS"),
		KafkaClientID: config.GetEnv("KAFKA_CLIENT_ID", "appapost"),
	}
}

// HasKafka reports whether event publishing is configured.
func (c Config) HasKafka() bool {
	return len(c.KafkaBrokers) > 0
}

// HasRedis reports whether the durable queue is configured.
func (c Config) HasRedis() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}
