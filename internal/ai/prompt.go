package ai

import (
	"fmt"
	"strings"

	"github.com/DartonStaker/appapost/internal/policy"
)

const generatorSystemPrompt = `You are a social media copywriter for an e-commerce brand.
Write platform-native caption variants for the content described by the user.
Respect every platform's character limit exactly. Include the mandatory hashtags.
Respond with ONLY a JSON array, one object per platform, shaped as:
[{"platform":"<id>","variants":[{"text":"...","format":"text|carousel|video","media_urls":[]}]}]
Produce between 3 and 5 variants per platform. No prose outside the JSON.`

// buildPrompt renders the single batched generation prompt covering
// every requested platform.
func buildPrompt(item ContentItem, platforms []policy.Platform, brand BrandProfile) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Content type: %s\n", item.Kind)
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	if item.Excerpt != "" {
		fmt.Fprintf(&b, "Excerpt: %s\n", item.Excerpt)
	}
	b.WriteString("\n")

	if brand.Voice != "" {
		fmt.Fprintf(&b, "Brand voice: %s\n", brand.Voice)
	}
	if len(brand.Hashtags) > 0 {
		fmt.Fprintf(&b, "Mandatory hashtags: %s\n", strings.Join(brand.Hashtags, " "))
	}
	b.WriteString("\n")

	b.WriteString("Platforms and their character limits:\n")
	for _, p := range platforms {
		formats := policy.FormatsFor(p)
		names := make([]string, 0, len(formats))
		for _, f := range formats {
			names = append(names, string(f))
		}
		fmt.Fprintf(&b, "- %s: max %d characters, formats: %s\n", p, policy.LimitFor(p), strings.Join(names, "/"))
	}

	b.WriteString("\nReturn 3-5 variants for every platform listed above.")

	return generatorSystemPrompt, b.String()
}
