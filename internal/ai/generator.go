package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/DartonStaker/appapost/internal/policy"
	"github.com/DartonStaker/appapost/pkg/llm"
	"github.com/DartonStaker/appapost/pkg/logging"
)

const (
	defaultMaxModelCalls   = 5
	maxVariantsPerPlatform = 5
)

// GeneratorConfig wires a Generator. Primary is required; Fallbacks
// are tried in order after the primary is exhausted.
type GeneratorConfig struct {
	Primary   llm.Provider
	Fallbacks []llm.Provider
	Vision    *VisionResolver
	Cache     *Cache
	Brand     BrandProfile
	Policy    VariantPolicy
	Logger    logging.Logger

	// MaxModelCalls caps simultaneous outbound model calls across all
	// generation requests.
	MaxModelCalls int64

	// OnBackendCall is an optional metrics hook, invoked once per
	// backend attempt with "success" or "error".
	OnBackendCall func(backend, status string, elapsed time.Duration)
}

// Generator produces platform-compliant caption variants with a
// local-model-first, cloud-fallback strategy.
type Generator struct {
	backends      []llm.Provider
	vision        *VisionResolver
	cache         *Cache
	brand         BrandProfile
	policy        VariantPolicy
	logger        logging.Logger
	sem           *semaphore.Weighted
	flight        singleflight.Group
	onBackendCall func(backend, status string, elapsed time.Duration)
}

func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Primary == nil {
		return nil, errors.New("primary backend is required")
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache(DefaultCacheCapacity, 0, nil)
	}
	if cfg.Policy.MinVariants == 0 {
		cfg.Policy = DefaultVariantPolicy()
	}
	if cfg.MaxModelCalls <= 0 {
		cfg.MaxModelCalls = defaultMaxModelCalls
	}

	backends := append([]llm.Provider{cfg.Primary}, cfg.Fallbacks...)
	return &Generator{
		backends:      backends,
		vision:        cfg.Vision,
		cache:         cfg.Cache,
		brand:         cfg.Brand,
		policy:        cfg.Policy,
		logger:        cfg.Logger,
		sem:           semaphore.NewWeighted(cfg.MaxModelCalls),
		onBackendCall: cfg.OnBackendCall,
	}, nil
}

// Generate produces 3-5 caption variants per requested platform.
// Identical inputs within the cache window return the cached result
// without touching any backend, and concurrent calls for the same
// fingerprint share a single in-flight generation.
func (g *Generator) Generate(ctx context.Context, item ContentItem, platforms []policy.Platform) (GenerationResult, error) {
	platforms = dedupe(platforms)
	if len(platforms) == 0 {
		return GenerationResult{}, errors.New("no valid platforms requested")
	}

	fp := Fingerprint(item, platforms)
	if cached, ok := g.cache.Get(fp); ok {
		return cached, nil
	}

	result, err, _ := g.flight.Do(fp, func() (interface{}, error) {
		// A concurrent caller may have populated the cache while this
		// goroutine waited on the flight group.
		if cached, ok := g.cache.Get(fp); ok {
			return cached, nil
		}
		res, err := g.generate(ctx, item, platforms)
		if err != nil {
			return GenerationResult{}, err
		}
		g.cache.Set(fp, res)
		return res, nil
	})
	if err != nil {
		return GenerationResult{}, err
	}
	return result.(GenerationResult), nil
}

func (g *Generator) generate(ctx context.Context, item ContentItem, platforms []policy.Platform) (GenerationResult, error) {
	var images []string
	visionDegraded := false
	if item.ImageRef != "" {
		if img := g.resolveImage(ctx, item.ImageRef); img != nil {
			images = []string{img.Base64}
		} else {
			visionDegraded = true
		}
	}

	systemPrompt, userPrompt := buildPrompt(item, platforms, g.brand)
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt, Images: images},
	}

	blocks, attempted, primaryErr := g.callBackends(ctx, messages)
	if blocks == nil {
		return GenerationResult{}, &GenerationError{Cause: primaryErr, Backends: attempted}
	}

	return GenerationResult{
		Variants:       g.enforce(blocks, platforms, item),
		VisionDegraded: visionDegraded,
	}, nil
}

// callBackends walks the backend chain strictly in priority order.
// Transient retries happen inside each provider; parse failures are
// never retried against the same backend, only handed to the next one.
func (g *Generator) callBackends(ctx context.Context, messages []llm.Message) ([]rawPlatformBlock, []string, error) {
	var primaryErr error
	attempted := make([]string, 0, len(g.backends))

	for _, backend := range g.backends {
		attempted = append(attempted, backend.Name())

		raw, err := g.callOne(ctx, backend, messages)
		if err == nil {
			blocks, parseErr := parseVariantBlocks(raw)
			if parseErr == nil {
				return blocks, attempted, nil
			}
			err = parseErr
		}

		if primaryErr == nil {
			primaryErr = err
		}
		if g.logger != nil {
			g.logger.WithError(err).WithField("backend", backend.Name()).Warn("Caption backend failed, trying next")
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, attempted, primaryErr
}

// callOne runs a single backend conversation under the global
// concurrency bound. Per-attempt deadlines live inside the provider so
// a timed-out attempt still leaves budget for its retries.
func (g *Generator) callOne(ctx context.Context, backend llm.Provider, messages []llm.Message) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer g.sem.Release(1)

	start := time.Now()
	raw, err := backend.Complete(ctx, messages)
	if g.onBackendCall != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		g.onBackendCall(backend.Name(), status, time.Since(start))
	}
	return raw, err
}

func (g *Generator) resolveImage(ctx context.Context, imageRef string) *InlineImage {
	if g.vision == nil {
		return nil
	}
	return g.vision.Resolve(ctx, imageRef)
}

// enforce applies platform policy to raw model output: char limits,
// format coercion, minimum variant counts, hashtag defaults.
func (g *Generator) enforce(blocks []rawPlatformBlock, requested []policy.Platform, item ContentItem) map[policy.Platform][]Variant {
	byPlatform := make(map[policy.Platform][]rawVariant, len(blocks))
	for _, block := range blocks {
		p, ok := policy.Normalize(block.Platform)
		if !ok {
			continue
		}
		byPlatform[p] = append(byPlatform[p], block.Variants...)
	}

	out := make(map[policy.Platform][]Variant, len(requested))
	for _, p := range requested {
		limit := policy.LimitFor(p)
		raws := byPlatform[p]
		if len(raws) > maxVariantsPerPlatform {
			raws = raws[:maxVariantsPerPlatform]
		}

		variants := make([]Variant, 0, g.policy.MinVariants)
		for _, raw := range raws {
			text := strings.TrimSpace(raw.Text)
			if text == "" {
				continue
			}
			hashtags := raw.Hashtags
			if len(hashtags) == 0 {
				hashtags = g.brand.Hashtags
			}
			variants = append(variants, Variant{
				Text:      truncateToLimit(text, limit),
				Format:    policy.CoerceFormat(p, policy.Format(raw.Format)),
				MediaURLs: raw.MediaURLs,
				CharLimit: limit,
				Hashtags:  hashtags,
			})
		}

		if len(variants) == 0 {
			variants = append(variants, g.fallbackVariant(p, item))
		}
		out[p] = g.pad(variants, limit)
	}
	return out
}

// fallbackVariant synthesizes a caption from the raw content when the
// model produced nothing usable for a platform.
func (g *Generator) fallbackVariant(p policy.Platform, item ContentItem) Variant {
	limit := policy.LimitFor(p)
	text := item.Title
	if item.Excerpt != "" {
		text += " - " + item.Excerpt
	}
	if len(g.brand.Hashtags) > 0 {
		text += " " + strings.Join(g.brand.Hashtags, " ")
	}
	return Variant{
		Text:      truncateToLimit(strings.TrimSpace(text), limit),
		Format:    policy.CoerceFormat(p, policy.FormatText),
		CharLimit: limit,
		Hashtags:  g.brand.Hashtags,
	}
}

// pad duplicates existing variants cyclically with a visible suffix
// until the minimum count is reached.
func (g *Generator) pad(variants []Variant, limit int) []Variant {
	for i := 0; len(variants) < g.policy.MinVariants; i++ {
		src := variants[i%len(variants)]
		n := len(variants) + 1
		suffix := fmt.Sprintf(g.policy.PadSuffix, n)
		src.Text = truncateToLimit(src.Text+" "+suffix, limit)
		variants = append(variants, src)
	}
	return variants
}

// Fingerprint derives the deterministic cache key for a generation
// request. The image reference is hashed rather than embedded so long
// data URIs do not blow up the key.
func Fingerprint(item ContentItem, platforms []policy.Platform) string {
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}
	sort.Strings(names)

	imageHash := ""
	if item.ImageRef != "" {
		sum := sha256.Sum256([]byte(item.ImageRef))
		imageHash = hex.EncodeToString(sum[:])
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s", item.Title, item.Excerpt, imageHash, item.Kind, strings.Join(names, ","))
	return hex.EncodeToString(h.Sum(nil))
}

func dedupe(platforms []policy.Platform) []policy.Platform {
	seen := make(map[policy.Platform]struct{}, len(platforms))
	out := make([]policy.Platform, 0, len(platforms))
	for _, p := range platforms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
