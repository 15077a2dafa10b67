package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DartonStaker/appapost/internal/ai"
	"github.com/DartonStaker/appapost/internal/dispatch"
	"github.com/DartonStaker/appapost/internal/events"
	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/internal/queue"
	"github.com/DartonStaker/appapost/internal/store"
	"github.com/DartonStaker/appapost/pkg/llm"
	"github.com/DartonStaker/appapost/pkg/logging"
)

// Generator is the caption-generation dependency.
type Generator interface {
	Generate(ctx context.Context, item ai.ContentItem, platforms []policy.Platform) (ai.GenerationResult, error)
}

// AccountReader looks up decrypted credentials.
type AccountReader interface {
	GetActive(ctx context.Context, userID string, platform policy.Platform) (*store.Account, error)
}

// VariantReader looks up stored caption variants.
type VariantReader interface {
	GetSelected(ctx context.Context, postID string, platform policy.Platform) (*store.StoredVariant, error)
}

// AttemptWriter persists publish outcomes.
type AttemptWriter interface {
	Record(ctx context.Context, attempt dispatch.PostAttempt) error
	LastPostedAt(ctx context.Context, userID string, platform policy.Platform) (*time.Time, error)
}

// OllamaProber reports local model daemon health.
type OllamaProber interface {
	Status(ctx context.Context) (llm.OllamaStatus, error)
}

// Config wires the HTTP handlers.
type Config struct {
	Generator  Generator
	Dispatcher *dispatch.Dispatcher
	Accounts   AccountReader
	Variants   VariantReader
	Attempts   AttemptWriter
	Queue      queue.Store
	Tracker    *dispatch.RateTracker
	Events     *events.Publisher
	Ollama     OllamaProber
	Logger     logging.Logger
}

type Handlers struct {
	cfg Config
}

func New(cfg Config) *Handlers {
	return &Handlers{cfg: cfg}
}

// Register mounts the API routes.
func (h *Handlers) Register(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/ai/generate", h.GenerateCaptions)
		api.POST("/post/auto", h.AutoPost)
		api.GET("/ollama/status", h.OllamaStatus)
	}
}

type generateRequest struct {
	Title     string   `json:"title" binding:"required"`
	Excerpt   string   `json:"excerpt"`
	ImageRef  string   `json:"image_ref"`
	Kind      string   `json:"kind"`
	Platforms []string `json:"platforms" binding:"required"`
}

// GenerateCaptions produces 3-5 caption variants per requested
// platform. The response keys the variants by every name a platform
// is known by, including the deprecated "twitter" alias.
func (h *Handlers) GenerateCaptions(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	platforms := make([]policy.Platform, 0, len(req.Platforms))
	for _, name := range req.Platforms {
		p, ok := policy.Normalize(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown platform: " + name})
			return
		}
		platforms = append(platforms, p)
	}
	if len(platforms) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one platform is required"})
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = ai.KindProduct
	}
	item := ai.ContentItem{
		Title:    req.Title,
		Excerpt:  req.Excerpt,
		ImageRef: req.ImageRef,
		Kind:     kind,
	}

	result, err := h.cfg.Generator.Generate(c.Request.Context(), item, platforms)
	if err != nil {
		var genErr *ai.GenerationError
		if errors.As(err, &genErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "caption generation failed", "detail": genErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variants":        result.Legacy(),
		"vision_degraded": result.VisionDegraded,
	})
}

type autoPostRequest struct {
	UserID    string   `json:"user_id" binding:"required"`
	PostID    string   `json:"post_id" binding:"required"`
	Platforms []string `json:"platforms" binding:"required"`
	PostNow   bool     `json:"post_now"`
}

type queuedJob struct {
	JobID    string          `json:"job_id"`
	Platform policy.Platform `json:"platform"`
	Delay    string          `json:"delay"`
}

// AutoPost publishes the selected variant for each requested platform,
// either immediately or via the delayed queue when rate spacing or the
// caller asks for it.
func (h *Handlers) AutoPost(c *gin.Context) {
	var req autoPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	platforms := make([]policy.Platform, 0, len(req.Platforms))
	for _, name := range req.Platforms {
		p, ok := policy.Normalize(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown platform: " + name})
			return
		}
		platforms = append(platforms, p)
	}

	if req.PostNow {
		h.postNow(c, req, platforms)
		return
	}
	h.enqueue(c, req, platforms)
}

func (h *Handlers) postNow(c *gin.Context, req autoPostRequest, platforms []policy.Platform) {
	ctx := c.Request.Context()
	attempts := make([]dispatch.PostAttempt, 0, len(platforms))

	for _, p := range platforms {
		attempt := dispatch.PostAttempt{
			ID:          uuid.New().String(),
			PostID:      req.PostID,
			Platform:    p,
			ScheduledAt: time.Now().UTC(),
			Status:      dispatch.StatusPending,
		}

		variant, err := h.cfg.Variants.GetSelected(ctx, req.PostID, p)
		if err != nil {
			attempt.Status = dispatch.StatusFailed
			attempt.Error = "no selected variant for platform"
			attempts = append(attempts, attempt)
			continue
		}
		attempt.Variant = variant.Variant

		account, err := h.cfg.Accounts.GetActive(ctx, req.UserID, p)
		if err == nil {
			attempt.Credential = &dispatch.Credential{
				AccessToken:       account.AccessToken,
				RefreshToken:      account.RefreshToken,
				PlatformAccountID: account.PlatformAccountID,
			}
		}
		attempts = append(attempts, attempt)
	}

	// Requests that already failed resolution skip the dispatcher.
	toDispatch := make([]dispatch.PostAttempt, 0, len(attempts))
	for _, a := range attempts {
		if a.Status == dispatch.StatusPending {
			toDispatch = append(toDispatch, a)
		}
	}
	dispatched := h.cfg.Dispatcher.DispatchAll(ctx, toDispatch)

	results := make([]dispatch.PostAttempt, 0, len(attempts))
	di := 0
	for _, a := range attempts {
		if a.Status == dispatch.StatusPending {
			results = append(results, dispatched[di])
			di++
		} else {
			results = append(results, a)
		}
	}

	for _, r := range results {
		if err := h.cfg.Attempts.Record(ctx, r); err != nil && h.cfg.Logger != nil {
			h.cfg.Logger.WithError(err).WithField("post_id", r.PostID).Error("Failed to record attempt")
		}
		if r.Status == dispatch.StatusPosted && h.cfg.Tracker != nil {
			h.cfg.Tracker.Record(req.UserID, r.Platform)
		}
	}
	h.cfg.Events.PublishBatch(results)

	c.JSON(http.StatusOK, gin.H{
		"message":       dispatch.Summary(results),
		"success_count": dispatch.SuccessCount(results),
		"results":       results,
	})
}

func (h *Handlers) enqueue(c *gin.Context, req autoPostRequest, platforms []policy.Platform) {
	ctx := c.Request.Context()
	queued := make([]queuedJob, 0, len(platforms))

	for _, p := range platforms {
		variant, err := h.cfg.Variants.GetSelected(ctx, req.PostID, p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no selected variant for platform " + string(p)})
			return
		}

		delay := time.Duration(0)
		if last, err := h.cfg.Attempts.LastPostedAt(ctx, req.UserID, p); err == nil {
			delay = dispatch.DelayBefore(p, last)
		}

		job := queue.NewJob(req.UserID, req.PostID, variant.ID, p, time.Now().Add(delay))
		if err := h.cfg.Queue.Enqueue(ctx, job); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue: " + err.Error()})
			return
		}
		queued = append(queued, queuedJob{JobID: job.ID, Platform: p, Delay: delay.String()})
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "queued",
		"jobs":    queued,
	})
}

// OllamaStatus probes the local model daemon.
func (h *Handlers) OllamaStatus(c *gin.Context) {
	status, err := h.cfg.Ollama.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"running": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, status)
}
