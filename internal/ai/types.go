package ai

import (
	"github.com/DartonStaker/appapost/internal/policy"
)

// ContentItem is the source material captions are generated from.
type ContentItem struct {
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt,omitempty"`
	ImageRef string `json:"image_ref,omitempty"`
	Kind     string `json:"kind"`
}

const (
	KindProduct = "product"
	KindBlog    = "blog"
)

// Variant is one candidate caption for a single platform.
type Variant struct {
	Text      string        `json:"text"`
	Format    policy.Format `json:"format"`
	MediaURLs []string      `json:"media_urls,omitempty"`
	CharLimit int           `json:"char_limit"`
	Hashtags  []string      `json:"hashtags,omitempty"`
}

// GenerationResult maps each requested platform to its variants.
// VisionDegraded signals the supplied image could not be used; the
// captions are text-only but otherwise valid.
type GenerationResult struct {
	Variants       map[policy.Platform][]Variant `json:"variants"`
	VisionDegraded bool                          `json:"vision_degraded"`
}

// Legacy returns the variants keyed by every name each platform is
// known by, so old clients reading "twitter" keep working.
func (r GenerationResult) Legacy() map[string][]Variant {
	out := make(map[string][]Variant, len(r.Variants))
	for p, variants := range r.Variants {
		for _, name := range policy.LegacyNames(p) {
			out[name] = variants
		}
	}
	return out
}

// BrandProfile carries the voice and mandatory hashtags embedded in
// every generation prompt.
type BrandProfile struct {
	Voice    string   `json:"voice"`
	Hashtags []string `json:"hashtags"`
}

// VariantPolicy controls how short model output is padded. The
// duplication suffix is a product decision, not a correctness rule,
// so it stays configurable.
type VariantPolicy struct {
	MinVariants int
	PadSuffix   string
}

// DefaultVariantPolicy matches the long-standing padding behavior.
func DefaultVariantPolicy() VariantPolicy {
	return VariantPolicy{
		MinVariants: 3,
		PadSuffix:   "(variant %d)",
	}
}
