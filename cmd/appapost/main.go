package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	appconfig "github.com/DartonStaker/appapost/internal/config"

	"github.com/DartonStaker/appapost/internal/ai"
	"github.com/DartonStaker/appapost/internal/dispatch"
	"github.com/DartonStaker/appapost/internal/events"
	"github.com/DartonStaker/appapost/internal/handlers"
	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/internal/queue"
	"github.com/DartonStaker/appapost/internal/store"
	"github.com/DartonStaker/appapost/pkg/config"
	"github.com/DartonStaker/appapost/pkg/crypto"
	"github.com/DartonStaker/appapost/pkg/database"
	"github.com/DartonStaker/appapost/pkg/kafka"
	"github.com/DartonStaker/appapost/pkg/llm"
	"github.com/DartonStaker/appapost/pkg/logging"
	"github.com/DartonStaker/appapost/pkg/monitoring"
	pkgredis "github.com/DartonStaker/appapost/pkg/redis"
	"github.com/DartonStaker/appapost/pkg/server"
	"github.com/DartonStaker/appapost/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("appapost")
	config.LoadEnv(logger)

	cfg := appconfig.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	// Token encryption at rest
	encryptor, err := crypto.DeriveFieldEncryptor([]byte(cfg.TokenMasterSecret), "social-tokens")
	if err != nil {
		logger.WithError(err).Fatal("Failed to derive token encryptor")
	}

	accountStore := store.NewAccountStore(db, encryptor)
	variantStore := store.NewVariantStore(db)
	attemptStore := store.NewAttemptStore(db)

	// Monitoring
	healthChecker := monitoring.NewHealthChecker("appapost", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("appapost", version.Version, version.GetShortCommit())
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))

	genRequests, genDuration, cacheEvents := metricsCollector.CreateGenerationMetrics()
	dispatchAttempts, dispatchDuration := metricsCollector.CreateDispatchMetrics()

	// Model backends: local Ollama first, cloud fallbacks only when
	// configured. The primary carries the retry budget; fallbacks get
	// a single shot each.
	ollamaProvider := llm.NewOllamaProvider(llm.Config{
		Provider:    "ollama",
		Model:       cfg.OllamaModel,
		APIURL:      cfg.OllamaURL,
		Temperature: 1.3,
		MaxAttempts: cfg.GenerationRetries,
		Timeout:     cfg.GenerationTimeout,
	})
	healthChecker.AddCheck("ollama", monitoring.ModelBackendHealthCheck(ollamaProvider.Ping))

	var fallbacks []llm.Provider
	if cfg.GrokAPIKey != "" {
		fallbacks = append(fallbacks, llm.NewGrokProvider(llm.Config{
			Provider:    "grok",
			Model:       cfg.GrokModel,
			APIKey:      cfg.GrokAPIKey,
			MaxAttempts: 1,
			Timeout:     cfg.GenerationTimeout,
		}))
	}
	if cfg.OpenAIKey != "" {
		fallbacks = append(fallbacks, llm.NewOpenAIProvider(llm.Config{
			Provider:    "openai",
			Model:       cfg.OpenAIModel,
			APIKey:      cfg.OpenAIKey,
			MaxAttempts: 1,
			Timeout:     cfg.GenerationTimeout,
		}))
	}
	if len(fallbacks) == 0 {
		logger.Warn("No cloud fallback configured, caption generation depends on the local model alone")
	}

	generationCache := ai.NewCache(cfg.CacheCapacity, cfg.CacheTTL, func(event string) {
		cacheEvents.WithLabelValues(event).Inc()
	})

	generator, err := ai.NewGenerator(ai.GeneratorConfig{
		Primary:   ollamaProvider,
		Fallbacks: fallbacks,
		Vision:    ai.NewVisionResolver(logger),
		Cache:     generationCache,
		Brand: ai.BrandProfile{
			Voice:    cfg.BrandVoice,
			Hashtags: cfg.BrandHashtags,
		},
		Policy: ai.VariantPolicy{
			MinVariants: cfg.MinVariants,
			PadSuffix:   "(variant %d)",
		},
		Logger:        logger,
		MaxModelCalls: int64(cfg.MaxModelCalls),
		OnBackendCall: func(backend, status string, elapsed time.Duration) {
			genRequests.WithLabelValues(backend, status).Inc()
			genDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to build caption generator")
	}

	// Platform adapters. X, Instagram and TikTok speak their native
	// APIs, the rest go through Ayrshare. When Ayrshare is configured
	// it takes precedence for TikTok too, with the native adapter as
	// fallback.
	tiktokAdapter := dispatch.Adapter(dispatch.NewTikTokAdapter(logger))
	adapters := []dispatch.Adapter{
		dispatch.NewXAdapter(logger),
		dispatch.NewInstagramAdapter(logger),
	}
	if cfg.AyrshareAPIKey != "" {
		for _, p := range []policy.Platform{policy.Facebook, policy.LinkedIn, policy.Pinterest} {
			adapters = append(adapters, dispatch.NewAyrshareAdapter(p, cfg.AyrshareAPIKey, logger))
		}
		tiktokAdapter = dispatch.NewFallbackAdapter(
			dispatch.NewAyrshareAdapter(policy.TikTok, cfg.AyrshareAPIKey, logger),
			tiktokAdapter, logger)
	} else {
		logger.Warn("AYRSHARE_API_KEY not set, Facebook/LinkedIn/Pinterest publishing disabled")
	}
	adapters = append(adapters, tiktokAdapter)

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherConfig{
		Adapters:       adapters,
		Logger:         logger,
		PublishTimeout: cfg.PublishTimeout,
		OnAttempt: func(platform, status string, elapsed time.Duration) {
			dispatchAttempts.WithLabelValues(platform, status).Inc()
			dispatchDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
		},
	})
	tracker := dispatch.NewRateTracker()

	// Scheduled-post queue: Redis when configured, in-memory otherwise.
	var queueStore queue.Store
	if cfg.HasRedis() {
		redisClient, err := pkgredis.NewClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()
		healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(redisClient))
		queueStore = queue.NewRedisStore(redisClient, "appapost:queue:posts")
	} else {
		logger.Warn("REDIS_URL not set, scheduled posts are held in memory and lost on restart")
		queueStore = queue.NewMemoryStore()
	}

	// Event stream (optional)
	var eventsPublisher *events.Publisher
	if cfg.HasKafka() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaClientID, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to create Kafka producer, attempt events disabled")
		} else {
			defer producer.Close()
			eventsPublisher = events.NewPublisher(producer, logger)
		}
	}

	worker := queue.NewWorker(queue.WorkerConfig{
		Store:        queueStore,
		Executor:     scheduledPostExecutor(queueStore, variantStore, accountStore, attemptStore, dispatcher, tracker, eventsPublisher),
		Logger:       logger,
		PollInterval: cfg.QueuePollInterval,
		MaxAttempts:  cfg.QueueMaxAttempts,
		BaseBackoff:  cfg.QueueBaseBackoff,
		OnDeadLetter: func(job queue.Job, err error) {
			attempt := dispatch.PostAttempt{
				ID:       job.ID,
				PostID:   job.PostID,
				Platform: job.Platform,
				Status:   dispatch.StatusFailed,
				Error:    err.Error(),
			}
			recordCtx, recordCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer recordCancel()
			if recordErr := attemptStore.Record(recordCtx, attempt); recordErr != nil {
				logger.WithError(recordErr).WithField("job_id", job.ID).Error("Failed to record dead-lettered attempt")
			}
			eventsPublisher.PublishAttempt(attempt)
		},
	})
	go worker.Run(ctx)

	router := server.SetupServiceRouter(logger, "appapost", healthChecker, metricsCollector)

	handlers.New(handlers.Config{
		Generator:  generator,
		Dispatcher: dispatcher,
		Accounts:   accountStore,
		Variants:   variantStore,
		Attempts:   attemptStore,
		Queue:      queueStore,
		Tracker:    tracker,
		Events:     eventsPublisher,
		Ollama:     ollamaProvider,
		Logger:     logger,
	}).Register(router)

	serverConfig := server.DefaultConfig("appapost", cfg.Port)

	logger.WithFields(logging.Fields{
		"port":           serverConfig.Port,
		"ollama_model":   cfg.OllamaModel,
		"fallbacks":      len(fallbacks),
		"redis":          cfg.HasRedis(),
		"kafka":          cfg.HasKafka(),
		"adapters":       len(adapters),
		"cache_capacity": cfg.CacheCapacity,
	}).Info("Starting appapost")

	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

// scheduledPostExecutor builds the worker callback that turns a due
// queue job into a single publish attempt. A rate-blocked job is
// deferred without consuming a retry; a failed publish returns an
// error so the worker applies its backoff policy.
func scheduledPostExecutor(
	queueStore queue.Store,
	variants *store.VariantStore,
	accounts *store.AccountStore,
	attempts *store.AttemptStore,
	dispatcher *dispatch.Dispatcher,
	tracker *dispatch.RateTracker,
	publisher *events.Publisher,
) queue.Executor {
	return queue.ExecutorFunc(func(ctx context.Context, job queue.Job) error {
		if ok, wait := tracker.Allow(job.UserID, job.Platform); !ok {
			deferred := job
			deferred.NotBefore = time.Now().Add(wait)
			return queueStore.Enqueue(ctx, deferred)
		}

		sv, err := variants.GetByID(ctx, job.VariantID)
		if err != nil {
			return fmt.Errorf("load variant %s: %w", job.VariantID, err)
		}

		attempt := dispatch.PostAttempt{
			ID:          job.ID,
			PostID:      job.PostID,
			Platform:    job.Platform,
			Variant:     sv.Variant,
			ScheduledAt: job.NotBefore,
		}
		if acct, err := accounts.GetActive(ctx, job.UserID, job.Platform); err == nil {
			attempt.Credential = &dispatch.Credential{
				AccessToken:       acct.AccessToken,
				RefreshToken:      acct.RefreshToken,
				PlatformAccountID: acct.PlatformAccountID,
			}
		}

		result := dispatcher.DispatchAll(ctx, []dispatch.PostAttempt{attempt})[0]
		if recordErr := attempts.Record(ctx, result); recordErr != nil {
			return fmt.Errorf("record attempt: %w", recordErr)
		}
		publisher.PublishAttempt(result)

		if result.Status != dispatch.StatusPosted {
			return errors.New(result.Error)
		}
		tracker.Record(job.UserID, job.Platform)
		return nil
	})
}
